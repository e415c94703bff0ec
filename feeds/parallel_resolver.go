package feeds

import (
	"context"
	"sync"

	"wovennews/models"
)

// Resolution is the outcome of resolving a single id
type Resolution struct {
	ID    string
	Story models.Story
	Err   error
}

type ParallelResolver struct {
	maxWorkers int
	resolver   Resolver
}

func NewParallelResolver(resolver Resolver, maxWorkers int) *ParallelResolver {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &ParallelResolver{
		maxWorkers: maxWorkers,
		resolver:   resolver,
	}
}

// ResolveAll resolves ids with at most maxWorkers requests in flight. The
// returned slice is indexed like ids regardless of completion order.
func (pr *ParallelResolver) ResolveAll(ctx context.Context, ids []string) []Resolution {
	results := make([]Resolution, len(ids))
	if len(ids) == 0 {
		return results
	}

	workerQueue := make(chan int, len(ids))
	for i := range ids {
		workerQueue <- i
	}
	close(workerQueue)

	workers := min(pr.maxWorkers, len(ids))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go pr.startWorker(ctx, &wg, workerQueue, ids, results)
	}
	wg.Wait()

	return results
}

func (pr *ParallelResolver) startWorker(ctx context.Context, wg *sync.WaitGroup, workerQueue <-chan int, ids []string, results []Resolution) {
	defer wg.Done()

	for idx := range workerQueue {
		id := ids[idx]
		// Each worker owns distinct indexes, no locking needed
		if err := ctx.Err(); err != nil {
			results[idx] = Resolution{ID: id, Err: err}
			continue
		}
		story, err := pr.resolver.Resolve(ctx, id)
		results[idx] = Resolution{ID: id, Story: story, Err: err}
	}
}
