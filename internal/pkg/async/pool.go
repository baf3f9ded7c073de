// Package async runs a batch of named tasks across a small worker pool and
// collects their results by name. The stats endpoint uses it to fan the
// independent rollup queries out concurrently.
package async

import (
	"context"
	"sync"
)

// Task is one named unit of work.
type Task struct {
	Name    string
	Execute func() (interface{}, error)
}

// Result carries a task's outcome back to the caller.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool executes task batches with a fixed worker count.
type Pool struct {
	workerCount int
}

// NewPool creates a pool with the given number of workers.
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs all tasks and returns their results keyed by task name.
// Cancelling the context abandons undelivered results; collected ones are
// still returned.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	taskCh := make(chan Task)
	// Buffered so workers never block delivering a result.
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				data, err := task.Execute()
				resultCh <- Result{Name: task.Name, Data: data, Err: err}
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[string]Result, len(tasks))
	for {
		select {
		case result, ok := <-resultCh:
			if !ok {
				return results
			}
			results[result.Name] = result
		case <-ctx.Done():
			return results
		}
	}
}
