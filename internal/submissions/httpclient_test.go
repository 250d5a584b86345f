package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSubmission = `{
	"programName": "mips",
	"entityType": "individual",
	"taxpayerIdentificationNumber": "000123456",
	"nationalProviderIdentifier": "0123456789",
	"performanceYear": 2017,
	"measurementSets": [{
		"category": "ia",
		"submissionMethod": "registry",
		"performanceStart": "2017-01-01",
		"performanceEnd": "2017-06-01",
		"measurements": [{"measureId": "IA_EPA_4", "value": true}]
	}]
}`

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	require.NoError(t, err)
}

func TestValidateSubmission_JSON(t *testing.T) {
	r := chi.NewRouter()
	r.Post(PathValidate, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.JSONEq(t, sampleSubmission, string(body))

		writeJSON(t, w, http.StatusOK, `{"data":{"submission":`+sampleSubmission+`}}`)
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	client := NewHTTPClient(ts.URL, WithBearerToken("tok-1"))
	sub, err := client.ValidateSubmission(context.Background(), []byte(sampleSubmission), FormatJSON)

	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "individual", sub.EntityType)
	assert.Equal(t, 2017, sub.PerformanceYear)
	require.Len(t, sub.MeasurementSets, 1)
	assert.Equal(t, MethodRegistry, sub.MeasurementSets[0].SubmissionMethod)
	assert.JSONEq(t, `"2017-01-01"`, string(sub.MeasurementSets[0].Extra["performanceStart"]))
}

func TestValidateSubmission_XMLContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "application/xml", req.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		writeJSON(t, w, http.StatusOK, `{"data":{"submission":`+sampleSubmission+`}}`)
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	_, err := client.ValidateSubmission(context.Background(), []byte("<submission/>"), FormatXML)
	require.NoError(t, err)
}

func TestValidateSubmission_RemoteErrorAttached(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(t, w, http.StatusUnprocessableEntity, `{"error":{
			"type": "ValidationError",
			"message": "invalid submission object",
			"details": [{"message": "field 'performanceYear' is required", "path": "$.performanceYear"}]
		}}`)
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	sub, err := client.ValidateSubmission(context.Background(), []byte(`{}`), FormatJSON)

	require.Error(t, err)
	assert.Nil(t, sub)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnprocessableEntity, te.StatusCode)
	assert.Equal(t, http.MethodPost, te.Method)
	require.NotNil(t, te.Remote)
	assert.Equal(t, "ValidationError", te.Remote.Type)
	require.Len(t, te.Remote.Details, 1)
	assert.Equal(t, "$.performanceYear", te.Remote.Details[0].Path)
	assert.Contains(t, err.Error(), "invalid submission object")
}

func TestListSubmissions_QueryAndHeader(t *testing.T) {
	r := chi.NewRouter()
	r.Get(PathSubmissions, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		assert.Equal(t, "0123456789", q.Get("nationalProviderIdentifier"))
		assert.Equal(t, "2017", q.Get("performanceYear"))
		assert.Equal(t, "individual", q.Get("entityType"))
		assert.False(t, q.Has("entityId"), "absent attributes are not sent")
		assert.Equal(t, "000123456", req.Header.Get(HeaderTaxpayerID))
		assert.Equal(t, "org-9", req.Header.Get("organization-id"))

		writeJSON(t, w, http.StatusOK, `{"data":{"submissions":[{"id":"001","entityType":"individual","taxpayerIdentificationNumber":"000123456","performanceYear":2017,"measurementSets":[]}]}}`)
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	client := NewHTTPClient(ts.URL, WithHeader("organization-id", "org-9"))
	subs, err := client.ListSubmissions(context.Background(), ListSubmissionsRequest{
		TaxpayerIdentificationNumber: "000123456",
		NationalProviderIdentifier:   "0123456789",
		EntityType:                   "individual",
		PerformanceYear:              2017,
	})

	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "001", subs[0].ID)
}

func TestCreateAndReplaceMeasurementSet(t *testing.T) {
	r := chi.NewRouter()
	r.Post(PathMeasurementSets, func(w http.ResponseWriter, req *http.Request) {
		var ms MeasurementSet
		require.NoError(t, json.NewDecoder(req.Body).Decode(&ms))
		require.NotNil(t, ms.Submission)
		assert.Nil(t, ms.Submission.EntityID)
		writeJSON(t, w, http.StatusCreated, `{"data":{"measurementSet":{"id":"ms-1","submissionId":"sub-1","category":"ia","submissionMethod":"registry"}}}`)
	})
	r.Put(PathMeasurementSets+"/{id}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "ms-7", chi.URLParam(req, "id"))
		var ms MeasurementSet
		require.NoError(t, json.NewDecoder(req.Body).Decode(&ms))
		assert.Equal(t, "sub-1", ms.SubmissionID)
		writeJSON(t, w, http.StatusOK, `{"data":{"measurementSet":{"id":"ms-7","submissionId":"sub-1","category":"aci","submissionMethod":"registry"}}}`)
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	ctx := context.Background()

	sub := Submission{EntityType: "individual", TaxpayerIdentificationNumber: "000123456", PerformanceYear: 2017}
	env := sub.Envelope()
	created, err := client.CreateMeasurementSet(ctx, MeasurementSet{Category: "ia", SubmissionMethod: MethodRegistry, Submission: &env})
	require.NoError(t, err)
	assert.Equal(t, "ms-1", created.ID)
	assert.Equal(t, "sub-1", created.SubmissionID)

	replaced, err := client.ReplaceMeasurementSet(ctx, "ms-7", MeasurementSet{Category: "aci", SubmissionMethod: MethodRegistry, SubmissionID: "sub-1"})
	require.NoError(t, err)
	assert.Equal(t, "ms-7", replaced.ID)
}

func TestHTTPClient_ConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := NewHTTPClient(url, WithTimeout(2*time.Second))
	_, err := client.CreateMeasurementSet(context.Background(), MeasurementSet{Category: "ia"})

	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestHTTPClient_NonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	_, err := client.ReplaceMeasurementSet(context.Background(), "ms-1", MeasurementSet{})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Nil(t, te.Remote)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.Contains(t, te.Error(), "upstream unavailable")
}

func TestHTTPClientFactory_PerCallCredentials(t *testing.T) {
	r := chi.NewRouter()
	r.Get(PathSubmissions, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer tok-2", req.Header.Get("Authorization"))
		assert.Equal(t, "org-7", req.Header.Get("organization-id"))
		assert.Equal(t, "qppupload-test", req.Header.Get("User-Agent"))
		writeJSON(t, w, http.StatusOK, `{"data":{"submissions":[]}}`)
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	factory := NewHTTPClientFactory(ts.URL, WithHeader("User-Agent", "qppupload-test"))
	client := factory("Bearer tok-2", map[string]string{"organization-id": "org-7"})

	subs, err := client.ListSubmissions(context.Background(), ListSubmissionsRequest{PerformanceYear: 2017})
	require.NoError(t, err)
	assert.Empty(t, subs)
}
