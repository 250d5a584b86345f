package mcptools

import "github.com/dusk-indust/qppupload/internal/uploader"

// --- MCP tool types for `qppupload mcp` ---
// Measurement sets and submissions are passed as plain JSON objects so
// the inferred schemas accept whatever fields the service returns.

// UploadInput is the input for the upload_submission tool.
type UploadInput struct {
	Document       string `json:"document" jsonschema:"the submission document, JSON or XML text"`
	Format         string `json:"format" jsonschema:"document format: JSON or XML"`
	Token          string `json:"token,omitempty" jsonschema:"bearer token for the Submissions service (default: configured token)"`
	OrganizationID string `json:"organizationId,omitempty" jsonschema:"organization to act for; 'individual' forces the security official role"`
}

// UploadOutput is the result of the upload_submission tool.
type UploadOutput struct {
	UploadID        string                 `json:"uploadId"`
	Status          string                 `json:"status"` // succeeded, partial or failed
	Errors          []uploader.ErrorReport `json:"errors"`
	MeasurementSets []map[string]any       `json:"measurementSets"`
}

// ValidateInput is the input for the validate_submission tool.
type ValidateInput struct {
	Document       string `json:"document" jsonschema:"the submission document, JSON or XML text"`
	Format         string `json:"format" jsonschema:"document format: JSON or XML"`
	Token          string `json:"token,omitempty" jsonschema:"bearer token for the Submissions service (default: configured token)"`
	OrganizationID string `json:"organizationId,omitempty" jsonschema:"organization to act for"`
}

// ValidateOutput is the result of the validate_submission tool. Exactly one
// of Submission and Error is set.
type ValidateOutput struct {
	Valid      bool                  `json:"valid"`
	Submission map[string]any        `json:"submission,omitempty"`
	Error      *uploader.ErrorReport `json:"error,omitempty"`
}
