package uploader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FanOut dispatches reconciled writes concurrently and collects every
// outcome. Unlike a fail-fast group, one failed write never cancels the
// others: each goroutine records its outcome and reports success to the
// errgroup.
type FanOut struct {
	writer     *Writer
	limit      int
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut that writes via writer. limit caps the number
// of writes in flight; zero or less means no cap. onProgress is called
// synchronously from each goroutine; it may be nil.
func NewFanOut(writer *Writer, limit int, onProgress func(ProgressEvent)) *FanOut {
	return &FanOut{
		writer:     writer,
		limit:      limit,
		onProgress: onProgress,
	}
}

// Run performs every decision and returns the outcomes in the order they
// settled.
func (f *FanOut) Run(ctx context.Context, decisions []Decision) []Outcome {
	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(decisions))
		g        errgroup.Group
	)
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}

	for _, d := range decisions {
		f.emit(ProgressEvent{
			Phase:  PhaseReconciling,
			Item:   d.Label(),
			Status: ProgressPending,
		})
	}

	for _, d := range decisions {
		g.Go(func() error {
			f.emit(ProgressEvent{
				Phase:   PhaseReconciling,
				Item:    d.Label(),
				Status:  ProgressWorking,
				Message: d.Action.String(),
			})

			out := f.writer.Write(ctx, d)

			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()

			if out.Err != nil {
				f.emit(ProgressEvent{
					Phase:   PhaseReconciling,
					Item:    d.Label(),
					Status:  ProgressFailed,
					Message: out.Err.Error(),
				})
				return nil
			}
			f.emit(ProgressEvent{
				Phase:  PhaseReconciling,
				Item:   d.Label(),
				Status: ProgressComplete,
			})
			return nil
		})
	}

	// Goroutines never return an error; Wait is only a join.
	_ = g.Wait()
	return outcomes
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
