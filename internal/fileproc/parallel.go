// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Sorted returns the collected errors ordered by path.
func (e *ProcessingErrors) Sorted() []ProcessingError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := append([]ProcessingError(nil), e.Errors...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap returns the individual file errors.
func (e *ProcessingErrors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Result pairs a processed file with its output.
type Result[T any] struct {
	Path  string
	Value T
}

// Options configures MapFiles.
type Options struct {
	// MaxWorkers bounds concurrency. Zero or less means 2x NumCPU.
	MaxWorkers int
	OnProgress ProgressFunc
}

// MapFiles processes files in parallel. Successful results are returned in
// input order; failures are collected into the returned *ProcessingErrors,
// which is nil when every file succeeded. Files not yet started when ctx is
// canceled fail with the context error.
func MapFiles[T any](ctx context.Context, files []string, opts Options, fn func(context.Context, string) (T, error)) ([]Result[T], *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	slots := make([]*Result[T], len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(maxWorkers)
	for i, path := range files {
		p.Go(func() {
			defer func() {
				if opts.OnProgress != nil {
					opts.OnProgress()
				}
			}()

			if err := ctx.Err(); err != nil {
				errs.Add(path, err)
				return
			}

			value, err := fn(ctx, path)
			if err != nil {
				errs.Add(path, err)
				return
			}
			slots[i] = &Result[T]{Path: path, Value: value}
		})
	}
	p.Wait()

	results := make([]Result[T], 0, len(files))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
