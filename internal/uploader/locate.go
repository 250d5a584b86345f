package uploader

import (
	"context"

	"github.com/dusk-indust/qppupload/internal/submissions"
)

// Locator finds the stored submission, if any, for a reporting entity.
type Locator struct {
	client submissions.Client
}

// NewLocator creates a Locator backed by client.
func NewLocator(client submissions.Client) *Locator {
	return &Locator{client: client}
}

// Locate returns the stored submission matching sub's identity, or nil when
// there is none. More than one match is an ambiguous request.
func (l *Locator) Locate(ctx context.Context, sub *submissions.Submission) (*submissions.Submission, error) {
	found, err := l.client.ListSubmissions(ctx, submissions.ListSubmissionsRequest{
		TaxpayerIdentificationNumber: sub.TaxpayerIdentificationNumber,
		NationalProviderIdentifier:   sub.NationalProviderIdentifier,
		EntityID:                     sub.EntityID,
		EntityType:                   sub.EntityType,
		PerformanceYear:              sub.PerformanceYear,
	})
	if err != nil {
		return nil, err
	}
	return selectExisting(found, sub.EntityType)
}

// selectExisting filters on entityType locally, since not every deployment
// of the service honors it as a query filter.
func selectExisting(found []submissions.Submission, entityType string) (*submissions.Submission, error) {
	var match *submissions.Submission
	for i := range found {
		if found[i].EntityType != entityType {
			continue
		}
		if match != nil {
			return nil, &submissions.ValidationError{Message: MsgAmbiguousSubmission}
		}
		match = &found[i]
	}
	return match, nil
}
