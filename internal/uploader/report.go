package uploader

import (
	"errors"

	"github.com/dusk-indust/qppupload/internal/submissions"
)

// Report statuses.
const (
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// ErrorReport is the serializable form of one upload error.
type ErrorReport struct {
	Message    string               `json:"message"`
	Type       string               `json:"type,omitempty"`
	StatusCode int                  `json:"statusCode,omitempty"`
	Details    []submissions.Detail `json:"details,omitempty"`
}

// Report is the serializable form of a Result, shared by the MCP tools and
// the HTTP front end.
type Report struct {
	UploadID        string                       `json:"uploadId"`
	Status          string                       `json:"status"`
	Errors          []ErrorReport                `json:"errors"`
	MeasurementSets []submissions.MeasurementSet `json:"measurementSets"`
}

// Report converts r. Status is failed when nothing was written, partial
// when some writes failed, succeeded otherwise.
func (r *Result) Report() Report {
	rep := Report{
		UploadID:        r.UploadID,
		Errors:          make([]ErrorReport, 0, len(r.Errors)),
		MeasurementSets: r.MeasurementSets,
	}
	if rep.MeasurementSets == nil {
		rep.MeasurementSets = []submissions.MeasurementSet{}
	}
	for _, err := range r.Errors {
		rep.Errors = append(rep.Errors, DescribeError(err))
	}

	switch {
	case len(r.Errors) == 0:
		rep.Status = StatusSucceeded
	case len(r.MeasurementSets) == 0:
		rep.Status = StatusFailed
	default:
		rep.Status = StatusPartial
	}
	return rep
}

// DescribeError flattens err into an ErrorReport, pulling the type and
// field details out of validation and service errors wrapped anywhere in
// the chain.
func DescribeError(err error) ErrorReport {
	rep := ErrorReport{Message: err.Error()}

	var verr *submissions.ValidationError
	if errors.As(err, &verr) {
		rep.Type = "ValidationError"
		rep.Details = verr.Details
		return rep
	}

	var terr *submissions.TransportError
	if errors.As(err, &terr) {
		rep.StatusCode = terr.StatusCode
		if terr.Remote != nil {
			rep.Type = terr.Remote.Type
			rep.Details = terr.Remote.Details
		}
	}
	return rep
}

// OnlyValidationErrors reports whether r failed solely because the document
// was rejected.
func (r *Result) OnlyValidationErrors() bool {
	if len(r.Errors) == 0 {
		return false
	}
	for _, err := range r.Errors {
		var verr *submissions.ValidationError
		if !errors.As(err, &verr) {
			return false
		}
	}
	return true
}
