// Package uploader synchronizes a submission document with the Submissions
// service.
//
// An upload validates the document, locates the stored submission for the
// same reporting entity, and then writes every measurement set, replacing
// the stored set that occupies the same slot or creating a new one. When no
// submission is stored yet, one measurement set is created alone first: the
// service creates the parent submission as a side effect of that write, and
// concurrent first writes could create it twice. All remaining writes run
// concurrently and every outcome is reported.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dusk-indust/qppupload/internal/auth"
	"github.com/dusk-indust/qppupload/internal/logging"
	"github.com/dusk-indust/qppupload/internal/submissions"
)

// Request is one upload.
type Request struct {
	Document []byte
	Format   submissions.Format
	Caller   auth.CallerRole
}

// Result is the terminal outcome of an upload. Errors are in the order the
// failing operations settled; MeasurementSets holds every successful write
// in settlement order. Callers must inspect both: a failed first write
// yields one error and no writes.
type Result struct {
	UploadID        string
	Errors          []error
	MeasurementSets []submissions.MeasurementSet
}

// Err joins all errors, or returns nil when there are none.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// ErrorString joins the error messages with "; ".
func (r *Result) ErrorString() string {
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// FirstWriteError reports that the write that would have created the
// submission failed; no further writes were attempted.
type FirstWriteError struct {
	Label string
	Err   error
}

// Error implements the error interface.
func (e *FirstWriteError) Error() string {
	return fmt.Sprintf("Could not create first measurementSet %s: %v", e.Label, e.Err)
}

// Unwrap returns the underlying write error.
func (e *FirstWriteError) Unwrap() error {
	return e.Err
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithMaxConcurrentWrites caps the writes in flight during reconciliation.
// Zero or less means no cap.
func WithMaxConcurrentWrites(n int) Option {
	return func(u *Uploader) {
		u.maxConcurrent = n
	}
}

// WithProgress registers a callback for progress events. It is called from
// several goroutines during reconciliation.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(u *Uploader) {
		u.onProgress = fn
	}
}

// Uploader drives uploads against one Submissions service. It holds no
// per-upload state and is safe for concurrent use.
type Uploader struct {
	validator     *Validator
	locator       *Locator
	writer        *Writer
	maxConcurrent int
	onProgress    func(ProgressEvent)
}

// New creates an Uploader that talks to the service through client.
func New(client submissions.Client, opts ...Option) *Uploader {
	u := &Uploader{
		validator: NewValidator(client),
		locator:   NewLocator(client),
		writer:    NewWriter(client),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// UploadWithCallback runs Upload and hands its result to onComplete, which
// is called exactly once.
func (u *Uploader) UploadWithCallback(ctx context.Context, req Request, onComplete func(errs []error, written []submissions.MeasurementSet)) {
	res := u.Upload(ctx, req)
	onComplete(res.Errors, res.MeasurementSets)
}

// Upload runs the whole upload and always returns a non-nil Result.
// Validation, locate, and first-write failures end the upload with that
// single error; failures of the remaining writes are collected alongside
// the successes.
func (u *Uploader) Upload(ctx context.Context, req Request) (res *Result) {
	res = &Result{
		UploadID:        uuid.NewString(),
		Errors:          []error{},
		MeasurementSets: []submissions.MeasurementSet{},
	}
	ctx = logging.WithUploadID(ctx, res.UploadID)
	logger := logging.WithFields(ctx, "format", string(req.Format), "caller", req.Caller.String())

	defer func() {
		if r := recover(); r != nil {
			res.Errors = append(res.Errors, fmt.Errorf("uploader: upload panicked: %v", r))
		}
		u.emit(ProgressEvent{Phase: PhaseDone, Status: ProgressComplete})
		logger.Info("upload finished",
			"written", len(res.MeasurementSets),
			"errors", len(res.Errors),
		)
	}()

	u.enter(ctx, PhaseValidating)
	sub, err := u.validator.Validate(ctx, req.Document, req.Format)
	if err != nil {
		u.fail(ctx, PhaseValidating, err)
		res.Errors = append(res.Errors, err)
		return res
	}

	u.enter(ctx, PhaseLocating)
	existing, err := u.locator.Locate(ctx, sub)
	if err != nil {
		u.fail(ctx, PhaseLocating, err)
		res.Errors = append(res.Errors, err)
		return res
	}

	candidates := sub.MeasurementSets
	var (
		target Target
		stored []submissions.MeasurementSet
	)

	if existing == nil {
		u.enter(ctx, PhaseCreatingFirst)
		first := Decision{
			Action:  ActionCreate,
			Payload: BuildPayload(candidates[0], NewSubmissionTarget(sub)),
		}
		candidates = candidates[1:]

		out := u.writer.Write(ctx, first)
		if out.Err != nil {
			ferr := &FirstWriteError{Label: first.Label(), Err: out.Err}
			u.fail(ctx, PhaseCreatingFirst, ferr)
			res.Errors = append(res.Errors, ferr)
			return res
		}
		res.MeasurementSets = append(res.MeasurementSets, *out.MeasurementSet)

		// Later writes join the submission the first write created. A
		// response without a submissionId leaves them on the envelope.
		if out.MeasurementSet.SubmissionID != "" {
			target = ExistingTarget(out.MeasurementSet.SubmissionID)
			stored = []submissions.MeasurementSet{*out.MeasurementSet}
		} else {
			target = NewSubmissionTarget(sub)
		}
	} else {
		logger.Debug("found stored submission", "submission_id", existing.ID, "measurement_sets", len(existing.MeasurementSets))
		target = ExistingTarget(existing.ID)
		stored = existing.MeasurementSets
	}

	u.enter(ctx, PhaseReconciling)
	decisions := make([]Decision, 0, len(candidates))
	for _, c := range candidates {
		d := Reconcile(c, stored, req.Caller, target)
		if matches := FindMatches(c, stored, req.Caller); len(matches) > 1 {
			logger.Warn("several stored measurement sets share a slot; replacing the first",
				"item", d.Label(),
				"matches", len(matches),
				"target_id", d.TargetID,
			)
		}
		logger.Debug("reconciled measurement set", "item", d.Label(), "action", d.Action.String(), "target_id", d.TargetID)
		decisions = append(decisions, d)
	}

	fanout := NewFanOut(u.writer, u.maxConcurrent, u.onProgress)
	outcomes := fanout.Run(ctx, decisions)

	u.enter(ctx, PhaseAggregating)
	for _, out := range outcomes {
		if out.Err != nil {
			logger.Warn("measurement set write failed", "item", out.Decision.Label(), "action", out.Decision.Action.String(), "error", out.Err)
			res.Errors = append(res.Errors, out.Err)
			continue
		}
		res.MeasurementSets = append(res.MeasurementSets, *out.MeasurementSet)
	}
	return res
}

func (u *Uploader) enter(ctx context.Context, phase Phase) {
	logging.FromContext(ctx).Debug("upload phase", "phase", phase.String())
	u.emit(ProgressEvent{Phase: phase, Status: ProgressWorking})
}

func (u *Uploader) fail(ctx context.Context, phase Phase, err error) {
	logging.FromContext(ctx).Warn("upload aborted", "phase", phase.String(), "error", err)
	u.emit(ProgressEvent{Phase: phase, Status: ProgressFailed, Message: err.Error()})
}

// emit sends a progress event if a callback is registered.
func (u *Uploader) emit(ev ProgressEvent) {
	if u.onProgress != nil {
		u.onProgress(ev)
	}
}
