package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"inclusao/internal/sentinel"
)

// ConcurrentResult buckets the outcomes of a concurrent run by sentinel.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	NotFounds int32
	Errors    int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.NotFounds + r.Errors
}

// RunConcurrent starts n goroutines, releases them together and waits for
// all of them. sentinel.ErrAlreadyUsed counts as a conflict and
// sentinel.ErrNotFound as a miss.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		res   ConcurrentResult
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			<-start
			var counter *int32
			switch err := fn(i); {
			case err == nil:
				counter = &res.Successes
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				counter = &res.Conflicts
			case errors.Is(err, sentinel.ErrNotFound):
				counter = &res.NotFounds
			default:
				counter = &res.Errors
			}
			atomic.AddInt32(counter, 1)
		}()
	}
	close(start)
	wg.Wait()
	return &res
}
