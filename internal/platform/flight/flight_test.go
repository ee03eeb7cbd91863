package flight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDoCollapsesConcurrentCalls(t *testing.T) {
	var g Group[int]
	var calls atomic.Int32
	release := make(chan struct{})
	ready := make(chan struct{})

	const waiters = 8
	results := make([]int, waiters)
	var wg sync.WaitGroup
	wg.Add(waiters)

	for i := 0; i < waiters; i++ {
		go func(i int) {
			defer wg.Done()
			v, _, err := g.Do("k", func() (int, error) {
				calls.Add(1)
				close(ready)
				<-release
				return 7, nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			results[i] = v
		}(i)
	}

	<-ready
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
	for i, v := range results {
		if v != 7 {
			t.Fatalf("waiter %d got %d, want 7", i, v)
		}
	}
}

func TestFailureDoesNotPoisonNextCall(t *testing.T) {
	var g Group[string]
	boom := errors.New("boom")

	if _, _, err := g.Do("k", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	v, shared, err := g.Do("k", func() (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("retry got (%q,%v), want (ok,nil)", v, err)
	}
	if shared {
		t.Fatal("retry should not be shared")
	}
}

func TestSequentialCallsRunFresh(t *testing.T) {
	var g Group[int]
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		if _, _, err := g.Do("k", func() (int, error) {
			calls.Add(1)
			return i, nil
		}); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("fn ran %d times, want 3", got)
	}
}
