package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/qppupload/internal/logging"
	"github.com/dusk-indust/qppupload/internal/submissions"
	"github.com/dusk-indust/qppupload/internal/uploader"
)

// UploadService handles MCP tool calls. It wraps an uploader.Service.
type UploadService struct {
	svc *uploader.Service
}

// NewUploadService creates an UploadService.
func NewUploadService(svc *uploader.Service) *UploadService {
	return &UploadService{svc: svc}
}

// Upload runs a full upload. Upload failures are reported in the output
// with status "failed" or "partial"; only an unidentifiable caller is a
// tool error.
func (s *UploadService) Upload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, UploadOutput, error) {
	res, err := s.svc.Upload(ctx, uploader.Call{
		Document:       []byte(input.Document),
		Format:         normalizeFormat(input.Format),
		Token:          input.Token,
		OrganizationID: input.OrganizationID,
	})
	if err != nil {
		return nil, UploadOutput{}, err
	}

	rep := res.Report()
	sets, err := toObjects(rep.MeasurementSets)
	if err != nil {
		return nil, UploadOutput{}, fmt.Errorf("encode measurement sets: %w", err)
	}

	logging.FromContext(ctx).Info("mcp upload finished", "upload_id", rep.UploadID, "status", rep.Status)
	return nil, UploadOutput{
		UploadID:        rep.UploadID,
		Status:          rep.Status,
		Errors:          rep.Errors,
		MeasurementSets: sets,
	}, nil
}

// Validate checks a document without writing anything.
func (s *UploadService) Validate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ValidateInput,
) (*mcp.CallToolResult, ValidateOutput, error) {
	sub, err := s.svc.Validate(ctx, uploader.Call{
		Document:       []byte(input.Document),
		Format:         normalizeFormat(input.Format),
		Token:          input.Token,
		OrganizationID: input.OrganizationID,
	})
	if err != nil {
		rep := uploader.DescribeError(err)
		return nil, ValidateOutput{Error: &rep}, nil
	}

	obj, err := toObject(sub)
	if err != nil {
		return nil, ValidateOutput{}, fmt.Errorf("encode submission: %w", err)
	}
	return nil, ValidateOutput{Valid: true, Submission: obj}, nil
}

// normalizeFormat upper-cases the format so "json" works. Unknown values
// pass through and fail validation with the service's message.
func normalizeFormat(f string) submissions.Format {
	return submissions.Format(strings.ToUpper(strings.TrimSpace(f)))
}

func toObject(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func toObjects(sets []submissions.MeasurementSet) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(sets))
	for _, ms := range sets {
		obj, err := toObject(ms)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}
