// Package bench compares the batching strategies against one dataset: it
// runs each strategy through the load driver, samples peak heap growth while
// the load runs, and verifies that every strategy landed the identical
// result via an order-independent fingerprint of the staging table.
package bench

import (
	"runtime"
	"time"
)

// Sampler measures peak heap growth across a load. It polls
// runtime.ReadMemStats on a short interval from Start until Stop and
// reports the largest HeapAlloc delta over the baseline taken at Start.
//
// Polling undercounts short-lived spikes, but it ranks the strategies
// reliably: the full-materialize strategy's O(n) buffer stays live for the
// whole bulk call while the streamed copy never holds more than its buffer.
type Sampler struct {
	// Interval between samples. Non-positive means 1ms.
	Interval time.Duration

	base uint64
	peak uint64
	stop chan struct{}
	done chan struct{}
}

func readHeap() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Start records the baseline and begins sampling. A Sampler is reusable;
// each Start resets the previous measurement.
func (s *Sampler) Start() {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}

	s.base = readHeap()
	s.peak = s.base
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if h := readHeap(); h > s.peak {
					s.peak = h
				}
			}
		}
	}()
}

// Stop ends sampling and returns the peak heap growth in bytes. Zero when
// Start was never called.
//
// Stop samples the heap synchronously before shutting the poller down, so a
// load too short for any ticker sample to land still registers whatever is
// live at Stop time.
func (s *Sampler) Stop() uint64 {
	if s.stop == nil {
		return 0
	}
	h := readHeap()
	close(s.stop)
	<-s.done
	s.stop = nil

	if h > s.peak {
		s.peak = h
	}
	if s.peak < s.base {
		return 0
	}
	return s.peak - s.base
}
