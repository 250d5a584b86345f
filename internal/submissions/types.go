package submissions

import (
	"encoding/json"
	"fmt"
)

// --- Enums ---

// Format selects the content type a submission document is sent in.
type Format string

const (
	FormatJSON Format = "JSON"
	FormatXML  Format = "XML"
)

// Valid reports whether f is one of the supported document formats.
func (f Format) Valid() bool {
	return f == FormatJSON || f == FormatXML
}

// ContentType returns the MIME type the validate endpoint expects for f.
func (f Format) ContentType() string {
	if f == FormatXML {
		return "application/xml"
	}
	return "application/json"
}

// SubmissionMethod identifies how a measurement set was reported.
type SubmissionMethod string

const (
	MethodRegistry               SubmissionMethod = "registry"
	MethodElectronicHealthRecord SubmissionMethod = "electronicHealthRecord"
	MethodClaims                 SubmissionMethod = "claims"
	MethodAttestation            SubmissionMethod = "attestation"
	MethodCMSWebInterface        SubmissionMethod = "cmsWebInterface"
)

// DefaultProgramName is substituted wherever a measurement set carries no
// program name of its own.
const DefaultProgramName = "mips"

// SecurityOfficialSubmitter is the submitterId the service stamps on
// measurement sets written by an account's own security official.
const SecurityOfficialSubmitter = "securityOfficial"

// --- Core Types ---

// Submission is the top-level record identifying a reporting entity for one
// performance year and program.
type Submission struct {
	ID                           string           `json:"id,omitempty"`
	ProgramName                  string           `json:"programName,omitempty"`
	EntityType                   string           `json:"entityType"`
	EntityID                     string           `json:"entityId,omitempty"`
	TaxpayerIdentificationNumber string           `json:"taxpayerIdentificationNumber"`
	NationalProviderIdentifier   string           `json:"nationalProviderIdentifier,omitempty"`
	PerformanceYear              int              `json:"performanceYear"`
	MeasurementSets              []MeasurementSet `json:"measurementSets"`
}

// Envelope is the denormalized submission identity carried by the very
// first measurement-set create, before the parent Submission exists.
// Optional identifiers are sent as explicit nulls.
type Envelope struct {
	ProgramName                  string  `json:"programName"`
	EntityType                   string  `json:"entityType"`
	EntityID                     *string `json:"entityId"`
	TaxpayerIdentificationNumber string  `json:"taxpayerIdentificationNumber"`
	NationalProviderIdentifier   *string `json:"nationalProviderIdentifier"`
	PerformanceYear              int     `json:"performanceYear"`
}

// Envelope returns the identity envelope for s.
func (s *Submission) Envelope() Envelope {
	return Envelope{
		ProgramName:                  s.ProgramName,
		EntityType:                   s.EntityType,
		EntityID:                     optional(s.EntityID),
		TaxpayerIdentificationNumber: s.TaxpayerIdentificationNumber,
		NationalProviderIdentifier:   optional(s.NationalProviderIdentifier),
		PerformanceYear:              s.PerformanceYear,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MeasurementSet is one reportable unit of performance data within a
// Submission. Fields the service defines but this module does not inspect
// are kept in Extra and written back unchanged.
type MeasurementSet struct {
	ID               string           `json:"id,omitempty"`
	SubmissionID     string           `json:"submissionId,omitempty"`
	Submission       *Envelope        `json:"submission,omitempty"`
	Category         string           `json:"category"`
	SubmissionMethod SubmissionMethod `json:"submissionMethod"`
	ProgramName      string           `json:"programName,omitempty"`
	PracticeID       string           `json:"practiceId,omitempty"`
	SubmitterID      string           `json:"submitterId,omitempty"`
	Measurements     json.RawMessage  `json:"measurements,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// EffectiveProgramName returns the program name, or DefaultProgramName when
// none is set.
func (m MeasurementSet) EffectiveProgramName() string {
	if m.ProgramName == "" {
		return DefaultProgramName
	}
	return m.ProgramName
}

// measurementSetFields is an alias without methods so the codec below can
// reuse the struct tags without recursing.
type measurementSetFields MeasurementSet

var knownMeasurementSetKeys = map[string]bool{
	"id":               true,
	"submissionId":     true,
	"submission":       true,
	"category":         true,
	"submissionMethod": true,
	"programName":      true,
	"practiceId":       true,
	"submitterId":      true,
	"measurements":     true,
}

// UnmarshalJSON decodes the known fields and keeps every other key in Extra.
func (m *MeasurementSet) UnmarshalJSON(data []byte) error {
	var fields measurementSetFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if knownMeasurementSetKeys[key] {
			delete(raw, key)
		}
	}
	if len(raw) > 0 {
		fields.Extra = raw
	} else {
		fields.Extra = nil
	}

	*m = MeasurementSet(fields)
	return nil
}

// MarshalJSON encodes the known fields merged with Extra. Known fields win
// over an Extra entry of the same name.
func (m MeasurementSet) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(measurementSetFields(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(m.Extra)+len(knownMeasurementSetKeys))
	for key, value := range m.Extra {
		merged[key] = value
	}
	var knownMap map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownMap); err != nil {
		return nil, fmt.Errorf("submissions: re-decode measurement set: %w", err)
	}
	for key, value := range knownMap {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// Clone returns a copy of m that shares no mutable state with it.
func (m MeasurementSet) Clone() MeasurementSet {
	out := m
	if m.Submission != nil {
		env := *m.Submission
		out.Submission = &env
	}
	if m.Measurements != nil {
		out.Measurements = append(json.RawMessage(nil), m.Measurements...)
	}
	if m.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(m.Extra))
		for key, value := range m.Extra {
			out.Extra[key] = append(json.RawMessage(nil), value...)
		}
	}
	return out
}

// --- Request / Response Types ---

// ListSubmissionsRequest filters GET /submissions. Zero-valued fields are
// omitted from the query.
type ListSubmissionsRequest struct {
	TaxpayerIdentificationNumber string
	NationalProviderIdentifier   string
	EntityID                     string
	EntityType                   string
	PerformanceYear              int
}

// dataEnvelope is the {"data": {...}} wrapper every success response uses.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

type submissionData struct {
	Submission Submission `json:"submission"`
}

type submissionsData struct {
	Submissions []Submission `json:"submissions"`
}

type measurementSetData struct {
	MeasurementSet MeasurementSet `json:"measurementSet"`
}
