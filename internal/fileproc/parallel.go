// Package fileproc provides concurrent processing utilities for files and
// the types read from them.
package fileproc

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/stream"
)

// ProcessingError is the failure of one item.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e ProcessingError) Unwrap() error { return e.Err }

// ProcessingErrors lists failed items in input order. It is not safe for
// concurrent use; MapOrdered only appends from its ordered callbacks.
type ProcessingErrors struct {
	Errors []ProcessingError
}

// Add records a failure.
func (e *ProcessingErrors) Add(path string, err error) {
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
}

// Len is the number of failures. A nil list is empty.
func (e *ProcessingErrors) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Errors)
}

// HasErrors reports whether anything failed.
func (e *ProcessingErrors) HasErrors() bool { return e.Len() > 0 }

func (e *ProcessingErrors) Error() string {
	switch e.Len() {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d items failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier scales NumCPU into the default worker count.
// Reading is I/O bound and parsing spends its time in cgo.
const DefaultWorkerMultiplier = 2

// Workers returns n, or the default when n <= 0.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// ProgressFunc is called once per finished item, in input order.
type ProgressFunc func(key string)

// MapOrdered runs fn over items on at most maxWorkers goroutines. Results
// of successful items come back in input order; failures, named by key,
// go to the returned list, which is nil when every item succeeded. Items
// that have not started when ctx is cancelled fail with ctx.Err().
func MapOrdered[T, R any](
	ctx context.Context,
	items []T,
	maxWorkers int,
	key func(T) string,
	fn func(T) (R, error),
	onProgress ProgressFunc,
) ([]R, *ProcessingErrors) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]R, 0, len(items))
	var errs ProcessingErrors

	s := stream.New().WithMaxGoroutines(Workers(maxWorkers))
	for _, item := range items {
		s.Go(func() stream.Callback {
			name := key(item)
			var (
				r   R
				err = ctx.Err()
			)
			if err == nil {
				r, err = fn(item)
			}
			// The stream runs callbacks one at a time in submission order.
			return func() {
				if err != nil {
					errs.Add(name, err)
				} else {
					results = append(results, r)
				}
				if onProgress != nil {
					onProgress(name)
				}
			}
		})
	}
	s.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	return results, &errs
}

// MapFiles is MapOrdered over paths.
func MapFiles[R any](ctx context.Context, files []string, maxWorkers int, fn func(string) (R, error), onProgress ProgressFunc) ([]R, *ProcessingErrors) {
	return MapOrdered(ctx, files, maxWorkers, func(path string) string { return path }, fn, onProgress)
}
