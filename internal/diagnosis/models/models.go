package models

import (
	"fmt"
	"time"
)

// Record is one self-reported test result and the state of sharing it.
//
// Invariants:
//   - ID is assigned by the store on first insert; zero means not yet persisted
//   - CreatedAt, once set on insert, is never re-derived
//   - VerificationCode is not unique; several records may share one code
//
// Tokens (LongTermToken, Certificate, RevisionToken) are opaque values issued by
// the verification server; the empty string means absent.
type Record struct {
	ID               int64        `json:"id"`
	VerificationCode string       `json:"verification_code,omitempty"`
	CreatedAt        *time.Time   `json:"created_at,omitempty"`
	SharedStatus     Shared       `json:"shared_status,omitempty"`
	LongTermToken    string       `json:"long_term_token,omitempty"`
	Certificate      string       `json:"certificate,omitempty"`
	RevisionToken    string       `json:"revision_token,omitempty"`
	OnsetDate        *Date        `json:"onset_date,omitempty"`
	HasSymptoms      HasSymptoms  `json:"has_symptoms,omitempty"`
	TestResult       TestResult   `json:"test_result,omitempty"`
	TravelStatus     TravelStatus `json:"travel_status,omitempty"`
}

// IsPersisted reports whether the store has assigned an ID to the record.
func (r Record) IsPersisted() bool {
	return r.ID != 0
}

// HasRevisionToken reports whether the record carries a non-empty revision token.
func (r Record) HasRevisionToken() bool {
	return r.RevisionToken != ""
}

// Validate checks that every enumerated field holds a known value.
func (r Record) Validate() error {
	if !r.SharedStatus.IsValid() {
		return fmt.Errorf("invalid shared status %q", r.SharedStatus)
	}
	if !r.HasSymptoms.IsValid() {
		return fmt.Errorf("invalid has symptoms %q", r.HasSymptoms)
	}
	if !r.TestResult.IsValid() {
		return fmt.Errorf("invalid test result %q", r.TestResult)
	}
	if !r.TravelStatus.IsValid() {
		return fmt.Errorf("invalid travel status %q", r.TravelStatus)
	}
	if r.OnsetDate != nil && !r.OnsetDate.IsValid() {
		return fmt.Errorf("invalid onset date %v", *r.OnsetDate)
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias stored optional fields.
func (r Record) Clone() Record {
	out := r
	if r.CreatedAt != nil {
		t := *r.CreatedAt
		out.CreatedAt = &t
	}
	if r.OnsetDate != nil {
		d := *r.OnsetDate
		out.OnsetDate = &d
	}
	return out
}

// WithCreatedAt returns a copy of the record stamped with t at millisecond precision.
func (r Record) WithCreatedAt(t time.Time) Record {
	out := r.Clone()
	ts := TruncateTimestamp(t)
	out.CreatedAt = &ts
	return out
}

// TruncateTimestamp normalizes t to the precision and location records are stored with.
func TruncateTimestamp(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}

// Timestamp returns a pointer to t normalized for storage; handy in struct literals.
func Timestamp(t time.Time) *time.Time {
	ts := TruncateTimestamp(t)
	return &ts
}

// TimestampMillis is Timestamp for a unix epoch in milliseconds.
func TimestampMillis(ms int64) *time.Time {
	return Timestamp(time.UnixMilli(ms))
}
