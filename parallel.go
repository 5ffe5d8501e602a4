package gotransit

import (
	"runtime"
	"sync"
)

type span struct {
	lo, hi int
}

// parallelRange splits [0, n) into contiguous spans and hands them to a fixed
// pool of workers. Spans never overlap, so fn may write to per-index output
// without locking.
func parallelRange(n, workers int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		fn(0, n)
		return
	}

	// a few spans per worker keeps the load balanced when costs differ
	chunk := n / (4 * workers)
	if chunk < 1 {
		chunk = 1
	}
	jobs := make(chan span, n/chunk+1)
	for lo := 0; lo < n; lo += chunk {
		jobs <- span{lo, min(lo+chunk, n)}
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				fn(s.lo, s.hi)
			}
		}()
	}
	wg.Wait()
}
