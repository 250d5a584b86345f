package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// Service paths.
const (
	PathValidate        = "/public/validate-submission"
	PathSubmissions     = "/submissions"
	PathMeasurementSets = "/measurement-sets"
)

// HeaderTaxpayerID carries the TIN on submission queries; the service does
// not accept it as a query parameter.
const HeaderTaxpayerID = "qpp-taxpayer-identification-number"

// HTTPClient implements Client over the service's JSON REST API.
type HTTPClient struct {
	http    *http.Client
	baseURL string
	headers http.Header
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// WithBearerToken sends token as the Authorization header on every request.
func WithBearerToken(token string) ClientOption {
	return func(c *HTTPClient) {
		token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
		if token != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithHeader adds a header sent on every request, such as the caller's
// organization-id.
func WithHeader(key, value string) ClientOption {
	return func(c *HTTPClient) {
		if value != "" {
			c.headers.Set(key, value)
		}
	}
}

// NewHTTPClient creates a client for the service rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateSubmission posts the raw document to the validate endpoint. XML
// documents are converted by the service; the response is always JSON.
func (c *HTTPClient) ValidateSubmission(ctx context.Context, document []byte, format Format) (*Submission, error) {
	var out dataEnvelope[submissionData]
	req := request{
		method:      http.MethodPost,
		path:        PathValidate,
		body:        document,
		contentType: format.ContentType(),
	}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out.Data.Submission, nil
}

// ListSubmissions fetches submissions matching req.
func (c *HTTPClient) ListSubmissions(ctx context.Context, req ListSubmissionsRequest) ([]Submission, error) {
	query := url.Values{}
	if req.NationalProviderIdentifier != "" {
		query.Set("nationalProviderIdentifier", req.NationalProviderIdentifier)
	}
	if req.EntityID != "" {
		query.Set("entityId", req.EntityID)
	}
	if req.PerformanceYear != 0 {
		query.Set("performanceYear", strconv.Itoa(req.PerformanceYear))
	}
	if req.EntityType != "" {
		query.Set("entityType", req.EntityType)
	}

	headers := make(http.Header)
	if req.TaxpayerIdentificationNumber != "" {
		headers.Set(HeaderTaxpayerID, req.TaxpayerIdentificationNumber)
	}

	var out dataEnvelope[submissionsData]
	if err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    PathSubmissions,
		query:   query,
		headers: headers,
	}, &out); err != nil {
		return nil, err
	}
	return out.Data.Submissions, nil
}

// CreateMeasurementSet calls POST /measurement-sets.
func (c *HTTPClient) CreateMeasurementSet(ctx context.Context, ms MeasurementSet) (*MeasurementSet, error) {
	return c.writeMeasurementSet(ctx, http.MethodPost, PathMeasurementSets, ms)
}

// ReplaceMeasurementSet calls PUT /measurement-sets/{id}.
func (c *HTTPClient) ReplaceMeasurementSet(ctx context.Context, id string, ms MeasurementSet) (*MeasurementSet, error) {
	return c.writeMeasurementSet(ctx, http.MethodPut, PathMeasurementSets+"/"+url.PathEscape(id), ms)
}

func (c *HTTPClient) writeMeasurementSet(ctx context.Context, method, path string, ms MeasurementSet) (*MeasurementSet, error) {
	body, err := json.Marshal(ms)
	if err != nil {
		return nil, fmt.Errorf("submissions: marshal measurement set: %w", err)
	}

	var out dataEnvelope[measurementSetData]
	if err := c.do(ctx, request{
		method:      method,
		path:        path,
		body:        body,
		contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	return &out.Data.MeasurementSet, nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	headers     http.Header
	body        []byte
	contentType string
}

// do performs one request and decodes a 2xx JSON body into result. Any
// other outcome becomes a *TransportError.
func (c *HTTPClient) do(ctx context.Context, req request, result any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("submissions: create request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	for key, values := range req.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &TransportError{Method: req.method, Path: req.path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: req.method, Path: req.path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Remote:     decodeAPIError(respBody),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("submissions: decode %s %s response: %w", req.method, req.path, err)
		}
	}
	return nil
}
