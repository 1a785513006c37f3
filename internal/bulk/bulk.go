// Package bulk runs one action over many selectors with a bounded worker
// pool and collects per-item failures.
package bulk

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// Operation configures a bulk run.
type Operation struct {
	// Jobs is the number of workers; 0 means one per CPU, 1 runs in order.
	Jobs            int
	ContinueOnError bool
	// Out receives one "item: ok" or "item: error" line per finished item.
	// Nil disables per-item output.
	Out io.Writer
}

// Result summarizes a bulk run.
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Skipped    int
	Errors     []ItemError
}

// ItemError is the failure of a single item.
type ItemError struct {
	Item  string
	Error error
}

// ItemFunc performs the action for one item.
type ItemFunc func(item string) error

// Execute runs fn for every item. Without ContinueOnError the run stops at
// the first failure and the remaining items are counted as skipped.
func (op *Operation) Execute(items []string, fn ItemFunc) *Result {
	if len(items) == 0 {
		return &Result{}
	}
	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs == 1 {
		return op.executeSequential(items, fn)
	}
	return op.executeParallel(items, fn, jobs)
}

func (op *Operation) executeSequential(items []string, fn ItemFunc) *Result {
	result := &Result{TotalItems: len(items)}
	for i, item := range items {
		if err := fn(item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
			op.report(item, err)
			if !op.ContinueOnError {
				result.Skipped = len(items) - i - 1
				return result
			}
			continue
		}
		result.Succeeded++
		op.report(item, nil)
	}
	return result
}

func (op *Operation) executeParallel(items []string, fn ItemFunc, workers int) *Result {
	result := &Result{TotalItems: len(items)}

	queue := make(chan string, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	var (
		succeeded int32
		failed    int32
		skipped   int32
		stop      atomic.Bool
		mu        sync.Mutex
		wg        sync.WaitGroup
	)
	if workers > len(items) {
		workers = len(items)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				if stop.Load() {
					atomic.AddInt32(&skipped, 1)
					continue
				}
				err := fn(item)
				mu.Lock()
				op.report(item, err)
				if err != nil {
					result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
				}
				mu.Unlock()
				if err != nil {
					atomic.AddInt32(&failed, 1)
					if !op.ContinueOnError {
						stop.Store(true)
					}
					continue
				}
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	result.Succeeded = int(succeeded)
	result.Failed = int(failed)
	result.Skipped = int(skipped)
	return result
}

func (op *Operation) report(item string, err error) {
	if op.Out == nil {
		return
	}
	if err != nil {
		fmt.Fprintf(op.Out, "%s: error: %v\n", item, err)
		return
	}
	fmt.Fprintf(op.Out, "%s: ok\n", item)
}

// ExitCode maps the result to a process exit code: 0 when everything
// succeeded, 5 for partial success, 1 when nothing succeeded.
func (r *Result) ExitCode() int {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		return 0
	case r.Succeeded > 0:
		return 5
	default:
		return 1
	}
}

// PrintSummary writes a human-readable summary.
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		fmt.Fprintf(w, "✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "✗ No operations succeeded (%d failed, %d skipped)\n", r.Failed, r.Skipped)
	default:
		fmt.Fprintf(w, "⚠ Partial success: %d succeeded, %d failed, %d skipped (out of %d)\n",
			r.Succeeded, r.Failed, r.Skipped, r.TotalItems)
	}

	shown := r.Errors
	if len(shown) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(r.Errors))
		shown = shown[:10]
	} else if len(shown) > 0 {
		fmt.Fprintln(w, "\nErrors:")
	}
	for _, e := range shown {
		fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
	}
}
