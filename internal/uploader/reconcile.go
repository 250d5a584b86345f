package uploader

import (
	"fmt"

	"github.com/dusk-indust/qppupload/internal/auth"
	"github.com/dusk-indust/qppupload/internal/submissions"
)

// Action is what a write does to the service.
type Action int

const (
	ActionCreate Action = iota
	ActionReplace
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Target is where a measurement set attaches: a stored submission by id, or
// a submission the service should create from Envelope. Exactly one is set.
type Target struct {
	SubmissionID string
	Envelope     *submissions.Envelope
}

// ExistingTarget attaches to the stored submission with id.
func ExistingTarget(id string) Target {
	return Target{SubmissionID: id}
}

// NewSubmissionTarget attaches to a submission created from sub's identity.
func NewSubmissionTarget(sub *submissions.Submission) Target {
	env := sub.Envelope()
	return Target{Envelope: &env}
}

// Decision is the reconciled write for one candidate measurement set.
// TargetID is set only for ActionReplace.
type Decision struct {
	Action   Action
	TargetID string
	Payload  submissions.MeasurementSet
}

// Label names the decision's measurement set in progress output and logs.
func (d Decision) Label() string {
	label := fmt.Sprintf("%s/%s", d.Payload.Category, d.Payload.SubmissionMethod)
	if d.Payload.PracticeID != "" {
		label += "@" + d.Payload.PracticeID
	}
	return label
}

// SameSlot reports whether stored occupies the slot candidate would be
// written to, as seen by role.
func SameSlot(candidate, stored submissions.MeasurementSet, role auth.CallerRole) bool {
	if !role.Owns(stored.SubmitterID, submissions.SecurityOfficialSubmitter) {
		return false
	}
	if stored.SubmissionMethod != candidate.SubmissionMethod {
		return false
	}
	if stored.Category != candidate.Category {
		return false
	}
	if (stored.PracticeID != "" || candidate.PracticeID != "") && stored.PracticeID != candidate.PracticeID {
		return false
	}
	return stored.EffectiveProgramName() == candidate.EffectiveProgramName()
}

// FindMatches returns every stored measurement set occupying candidate's
// slot, in stored order. More than one indicates inconsistent server data.
func FindMatches(candidate submissions.MeasurementSet, stored []submissions.MeasurementSet, role auth.CallerRole) []submissions.MeasurementSet {
	var matches []submissions.MeasurementSet
	for _, s := range stored {
		if SameSlot(candidate, s, role) {
			matches = append(matches, s)
		}
	}
	return matches
}

// Reconcile decides whether candidate replaces a stored measurement set or
// is created. When several stored sets share the slot the first one wins.
func Reconcile(candidate submissions.MeasurementSet, stored []submissions.MeasurementSet, role auth.CallerRole, target Target) Decision {
	payload := BuildPayload(candidate, target)
	for _, s := range stored {
		if SameSlot(candidate, s, role) {
			return Decision{Action: ActionReplace, TargetID: s.ID, Payload: payload}
		}
	}
	return Decision{Action: ActionCreate, Payload: payload}
}

// BuildPayload returns a new measurement set for writing candidate to
// target. candidate is not modified.
func BuildPayload(candidate submissions.MeasurementSet, target Target) submissions.MeasurementSet {
	payload := candidate.Clone()
	payload.ID = ""
	payload.SubmissionID = ""
	payload.Submission = nil

	if target.SubmissionID != "" {
		payload.SubmissionID = target.SubmissionID
	} else if target.Envelope != nil {
		env := *target.Envelope
		payload.Submission = &env
	}
	return payload
}
