package uploader

import (
	"context"
	"fmt"

	"github.com/dusk-indust/qppupload/internal/submissions"
)

// Outcome is the settled result of one write: MeasurementSet on success,
// Err otherwise.
type Outcome struct {
	Decision       Decision
	MeasurementSet *submissions.MeasurementSet
	Err            error
}

// Writer performs single measurement-set writes.
type Writer struct {
	client submissions.Client
}

// NewWriter creates a Writer backed by client.
func NewWriter(client submissions.Client) *Writer {
	return &Writer{client: client}
}

// Write sends d to the service exactly once. It never panics; a panicking
// client is reported as the outcome's error.
func (w *Writer) Write(ctx context.Context, d Decision) (out Outcome) {
	out.Decision = d
	defer func() {
		if r := recover(); r != nil {
			out.MeasurementSet = nil
			out.Err = fmt.Errorf("uploader: %s %s panicked: %v", d.Action, d.Label(), r)
		}
	}()

	var (
		ms  *submissions.MeasurementSet
		err error
	)
	switch d.Action {
	case ActionReplace:
		ms, err = w.client.ReplaceMeasurementSet(ctx, d.TargetID, d.Payload)
	default:
		ms, err = w.client.CreateMeasurementSet(ctx, d.Payload)
	}
	if err != nil {
		out.Err = err
		return out
	}
	if ms == nil {
		out.Err = fmt.Errorf("uploader: %s %s: empty response", d.Action, d.Label())
		return out
	}
	out.MeasurementSet = ms
	return out
}
