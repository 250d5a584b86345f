package uploader

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/qppupload/internal/auth"
	"github.com/dusk-indust/qppupload/internal/submissions"
)

// HeaderOrganizationID names the organization a caller acts for. It is
// forwarded to the service unchanged.
const HeaderOrganizationID = "organization-id"

// ErrUnidentifiedCaller wraps token problems found before any request is
// made.
var ErrUnidentifiedCaller = errors.New("uploader: identify caller")

// Call is one upload request as a front end receives it: the raw document
// plus the caller's credentials.
type Call struct {
	Document       []byte
	Format         submissions.Format
	Token          string
	OrganizationID string
}

// Service turns a Call into an authenticated Upload. The CLI, the HTTP
// front end, and the MCP tools all go through it.
type Service struct {
	clients      submissions.ClientFactory
	defaultToken string
	defaultOrgID string
	opts         []Option
}

// NewService creates a Service. defaultToken and defaultOrgID fill in when a
// Call leaves them empty.
func NewService(clients submissions.ClientFactory, defaultToken, defaultOrgID string, opts ...Option) *Service {
	return &Service{
		clients:      clients,
		defaultToken: defaultToken,
		defaultOrgID: defaultOrgID,
		opts:         opts,
	}
}

// Upload resolves the caller and runs the upload. The error is non-nil only
// when the caller cannot be identified; upload failures are in the Result.
func (s *Service) Upload(ctx context.Context, call Call, extra ...Option) (*Result, error) {
	client, role, err := s.resolve(call)
	if err != nil {
		return nil, err
	}
	opts := append(append([]Option{}, s.opts...), extra...)
	return New(client, opts...).Upload(ctx, Request{
		Document: call.Document,
		Format:   call.Format,
		Caller:   role,
	}), nil
}

// Validate runs only the validation phase and returns the canonical
// submission.
func (s *Service) Validate(ctx context.Context, call Call) (*submissions.Submission, error) {
	client, _, err := s.resolve(call)
	if err != nil {
		return nil, err
	}
	return NewValidator(client).Validate(ctx, call.Document, call.Format)
}

func (s *Service) resolve(call Call) (submissions.Client, auth.CallerRole, error) {
	token := call.Token
	if token == "" {
		token = s.defaultToken
	}
	orgID := call.OrganizationID
	if orgID == "" {
		orgID = s.defaultOrgID
	}

	role, err := auth.CallerFromToken(token, orgID)
	if err != nil {
		return nil, auth.CallerRole{}, fmt.Errorf("%w: %w", ErrUnidentifiedCaller, err)
	}

	var headers map[string]string
	if orgID != "" {
		headers = map[string]string{HeaderOrganizationID: orgID}
	}
	return s.clients(token, headers), role, nil
}
