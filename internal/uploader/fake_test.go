package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dusk-indust/qppupload/internal/submissions"
)

// call records one request made to fakeClient.
type call struct {
	op      string // validate, list, create, replace
	id      string
	list    submissions.ListSubmissionsRequest
	payload submissions.MeasurementSet
}

// fakeClient implements submissions.Client for tests. Each operation is
// wired to a configurable function; unset writes echo the payload back with
// a generated id.
type fakeClient struct {
	validate func(ctx context.Context, doc []byte, format submissions.Format) (*submissions.Submission, error)
	list     func(ctx context.Context, req submissions.ListSubmissionsRequest) ([]submissions.Submission, error)
	create   func(ctx context.Context, ms submissions.MeasurementSet) (*submissions.MeasurementSet, error)
	replace  func(ctx context.Context, id string, ms submissions.MeasurementSet) (*submissions.MeasurementSet, error)

	mu    sync.Mutex
	calls []call
	seq   int
}

func (f *fakeClient) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeClient) nextID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeClient) callsOf(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeClient) ValidateSubmission(ctx context.Context, doc []byte, format submissions.Format) (*submissions.Submission, error) {
	f.record(call{op: "validate"})
	if f.validate == nil {
		return nil, errors.New("validate not configured")
	}
	return f.validate(ctx, doc, format)
}

func (f *fakeClient) ListSubmissions(ctx context.Context, req submissions.ListSubmissionsRequest) ([]submissions.Submission, error) {
	f.record(call{op: "list", list: req})
	if f.list == nil {
		return nil, nil
	}
	return f.list(ctx, req)
}

func (f *fakeClient) CreateMeasurementSet(ctx context.Context, ms submissions.MeasurementSet) (*submissions.MeasurementSet, error) {
	f.record(call{op: "create", payload: ms})
	if f.create != nil {
		return f.create(ctx, ms)
	}
	out := ms.Clone()
	out.ID = f.nextID("ms")
	if out.SubmissionID == "" {
		out.SubmissionID = "sub-new"
	}
	out.Submission = nil
	return &out, nil
}

func (f *fakeClient) ReplaceMeasurementSet(ctx context.Context, id string, ms submissions.MeasurementSet) (*submissions.MeasurementSet, error) {
	f.record(call{op: "replace", id: id, payload: ms})
	if f.replace != nil {
		return f.replace(ctx, id, ms)
	}
	out := ms.Clone()
	out.ID = id
	return &out, nil
}

// returning makes a validate func that echoes a deep copy of sub.
func returning(sub submissions.Submission) func(context.Context, []byte, submissions.Format) (*submissions.Submission, error) {
	return func(context.Context, []byte, submissions.Format) (*submissions.Submission, error) {
		data, err := json.Marshal(sub)
		if err != nil {
			return nil, err
		}
		var out submissions.Submission
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
}

func mset(category string, method submissions.SubmissionMethod) submissions.MeasurementSet {
	return submissions.MeasurementSet{
		Category:         category,
		SubmissionMethod: method,
		Measurements:     json.RawMessage(`[{"measureId":"IA_EPA_4","value":true}]`),
		Extra: map[string]json.RawMessage{
			"performanceStart": json.RawMessage(`"2017-01-01"`),
			"performanceEnd":   json.RawMessage(`"2017-06-01"`),
		},
	}
}

func validSubmission(sets ...submissions.MeasurementSet) submissions.Submission {
	return submissions.Submission{
		ProgramName:                  "mips",
		EntityType:                   "individual",
		TaxpayerIdentificationNumber: "000123456",
		NationalProviderIdentifier:   "0123456789",
		PerformanceYear:              2017,
		MeasurementSets:              sets,
	}
}
