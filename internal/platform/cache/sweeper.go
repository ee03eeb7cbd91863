package cache

import (
	"sync"
	"time"
)

// Sweepable is anything the sweeper can expire entries from
type Sweepable interface{ Sweep() }

// Sweeper runs Sweep on a set of caches at a fixed interval.
// Start is idempotent; the loop runs until Stop
type Sweeper struct {
	interval time.Duration
	caches   []Sweepable

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewSweeper builds a sweeper over the given caches
func NewSweeper(interval time.Duration, caches ...Sweepable) *Sweeper {
	return &Sweeper{
		interval: interval,
		caches:   caches,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop exactly once
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *Sweeper) run() {
	defer close(s.done)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			for _, c := range s.caches {
				c.Sweep()
			}
		case <-s.stop:
			return
		}
	}
}

// Stop terminates the loop and waits for it to exit.
// Safe to call before Start and more than once
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.Start() // ensure done closes even if Start was never called
	<-s.done
}
