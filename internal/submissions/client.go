// Package submissions is a client for the remote Submissions service: the
// validate endpoint, the submission query, and the measurement-set writes.
// Failures are reported as *ValidationError or *TransportError and are never
// reinterpreted.
package submissions

import "context"

// Client is the set of Submissions service operations the uploader consumes.
type Client interface {
	// ValidateSubmission sends the raw document for validation and returns
	// the canonical submission the service echoes back.
	ValidateSubmission(ctx context.Context, document []byte, format Format) (*Submission, error)

	// ListSubmissions queries stored submissions matching req.
	ListSubmissions(ctx context.Context, req ListSubmissionsRequest) ([]Submission, error)

	// CreateMeasurementSet creates a measurement set, implicitly creating its
	// parent submission when the payload carries an envelope.
	CreateMeasurementSet(ctx context.Context, ms MeasurementSet) (*MeasurementSet, error)

	// ReplaceMeasurementSet replaces the stored measurement set with id.
	ReplaceMeasurementSet(ctx context.Context, id string, ms MeasurementSet) (*MeasurementSet, error)
}

// ClientFactory builds a Client that acts as the holder of token. Front
// ends call it once per upload because the token comes with the request.
type ClientFactory func(token string, headers map[string]string) Client

// NewHTTPClientFactory returns a ClientFactory producing HTTPClients rooted
// at baseURL. opts apply to every client before the per-call token and
// headers.
func NewHTTPClientFactory(baseURL string, opts ...ClientOption) ClientFactory {
	return func(token string, headers map[string]string) Client {
		all := append([]ClientOption{}, opts...)
		all = append(all, WithBearerToken(token))
		for k, v := range headers {
			all = append(all, WithHeader(k, v))
		}
		return NewHTTPClient(baseURL, all...)
	}
}
