package uploader

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/qppupload/internal/submissions"
)

// Message texts shared with callers that surface them to end users.
const (
	MsgInvalidFormat        = "Invalid file type"
	MsgNoMeasurementSets    = "At least one measurementSet must be defined to use this functionality"
	MsgAmbiguousSubmission  = "Could not determine which existing Submission matches request"
	notAllowedViaFileUpload = "not allowed via file upload"
)

// uploadableMethods are the submission methods this upload path accepts.
// The service validates others (attestation, cmsWebInterface, claims) but
// they cannot be written through file upload.
var uploadableMethods = map[submissions.SubmissionMethod]bool{
	submissions.MethodRegistry:               true,
	submissions.MethodElectronicHealthRecord: true,
}

// Validator sends raw documents to the service's validate endpoint and
// enforces the upload-specific rules on the canonical submission it returns.
type Validator struct {
	client submissions.Client
}

// NewValidator creates a Validator backed by client.
func NewValidator(client submissions.Client) *Validator {
	return &Validator{client: client}
}

// Validate returns the canonical submission for document. An unsupported
// format fails before any request is made. Errors from the service are
// returned unchanged.
func (v *Validator) Validate(ctx context.Context, document []byte, format submissions.Format) (*submissions.Submission, error) {
	if !format.Valid() {
		return nil, &submissions.ValidationError{Message: MsgInvalidFormat}
	}

	sub, err := v.client.ValidateSubmission(ctx, document, format)
	if err != nil {
		return nil, err
	}
	if err := CheckUploadable(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CheckUploadable enforces the rules the service does not: at least one
// measurement set, and only uploadable submission methods. Every offending
// measurement set is reported, not just the first.
func CheckUploadable(sub *submissions.Submission) error {
	if len(sub.MeasurementSets) == 0 {
		return &submissions.ValidationError{
			Message: MsgNoMeasurementSets,
			Details: []submissions.Detail{
				submissions.FieldError("Submission", "measurementSets", "$.measurementSets", MsgNoMeasurementSets),
			},
		}
	}

	var details []submissions.Detail
	var methods []string
	seen := make(map[submissions.SubmissionMethod]bool)
	for i, ms := range sub.MeasurementSets {
		if uploadableMethods[ms.SubmissionMethod] {
			continue
		}
		reason := fmt.Sprintf("'%s' is %s", ms.SubmissionMethod, notAllowedViaFileUpload)
		details = append(details, submissions.FieldError(
			fmt.Sprintf("Submission.measurementSets[%d]", i),
			"submissionMethod",
			fmt.Sprintf("$.measurementSets[%d].submissionMethod", i),
			reason,
		))
		if !seen[ms.SubmissionMethod] {
			seen[ms.SubmissionMethod] = true
			methods = append(methods, "'"+string(ms.SubmissionMethod)+"'")
		}
	}
	if len(details) == 0 {
		return nil
	}

	verb := "is"
	if len(methods) > 1 {
		verb = "are"
	}
	return &submissions.ValidationError{
		Message: fmt.Sprintf("%s %s %s", strings.Join(methods, ", "), verb, notAllowedViaFileUpload),
		Details: details,
	}
}
