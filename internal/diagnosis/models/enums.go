package models

import "fmt"

// Each enum's zero value is its "unset" member. The zero value renders as the
// unset name (NOT_ATTEMPTED, UNSET) in text, JSON and storage, and parsing that
// name yields the zero value again, so a default Record compares equal to the
// named unset constants.

// Shared tracks whether a positive result has been shared upstream.
type Shared string

const (
	SharedNotAttempted Shared = ""
	SharedShared       Shared = "SHARED"
	SharedNotShared    Shared = "NOT_SHARED"
)

const notAttemptedName = "NOT_ATTEMPTED"

// ParseShared accepts the upper-snake name or the empty string.
func ParseShared(s string) (Shared, error) {
	switch s {
	case "", notAttemptedName:
		return SharedNotAttempted, nil
	case string(SharedShared), string(SharedNotShared):
		return Shared(s), nil
	}
	return "", fmt.Errorf("unknown shared status %q", s)
}

func (s Shared) IsValid() bool {
	_, err := ParseShared(string(s))
	return err == nil && s != notAttemptedName
}

func (s Shared) String() string {
	if s == SharedNotAttempted {
		return notAttemptedName
	}
	return string(s)
}

func (s Shared) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Shared) UnmarshalText(b []byte) error {
	v, err := ParseShared(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// HasSymptoms is a tri-state answer.
type HasSymptoms string

const (
	HasSymptomsUnset HasSymptoms = ""
	HasSymptomsYes   HasSymptoms = "YES"
	HasSymptomsNo    HasSymptoms = "NO"
)

const unsetName = "UNSET"

func ParseHasSymptoms(s string) (HasSymptoms, error) {
	switch s {
	case "", unsetName:
		return HasSymptomsUnset, nil
	case string(HasSymptomsYes), string(HasSymptomsNo):
		return HasSymptoms(s), nil
	}
	return "", fmt.Errorf("unknown has symptoms %q", s)
}

func (h HasSymptoms) IsValid() bool {
	_, err := ParseHasSymptoms(string(h))
	return err == nil && h != unsetName
}

func (h HasSymptoms) String() string {
	if h == HasSymptomsUnset {
		return unsetName
	}
	return string(h)
}

func (h HasSymptoms) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *HasSymptoms) UnmarshalText(b []byte) error {
	v, err := ParseHasSymptoms(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// TestResult classifies the confidence or kind of a diagnosis.
type TestResult string

const (
	TestResultUnset     TestResult = ""
	TestResultConfirmed TestResult = "CONFIRMED"
	TestResultLikely    TestResult = "LIKELY"
	TestResultNegative  TestResult = "NEGATIVE"
)

func ParseTestResult(s string) (TestResult, error) {
	switch s {
	case "", unsetName:
		return TestResultUnset, nil
	case string(TestResultConfirmed), string(TestResultLikely), string(TestResultNegative):
		return TestResult(s), nil
	}
	return "", fmt.Errorf("unknown test result %q", s)
}

func (t TestResult) IsValid() bool {
	_, err := ParseTestResult(string(t))
	return err == nil && t != unsetName
}

func (t TestResult) String() string {
	if t == TestResultUnset {
		return unsetName
	}
	return string(t)
}

func (t TestResult) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TestResult) UnmarshalText(b []byte) error {
	v, err := ParseTestResult(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TravelStatus records whether the user travelled during the exposure window.
type TravelStatus string

const (
	TravelStatusNotAttempted TravelStatus = ""
	TravelStatusTraveled     TravelStatus = "TRAVELED"
	TravelStatusNotTraveled  TravelStatus = "NOT_TRAVELED"
	TravelStatusNoAnswer     TravelStatus = "NO_ANSWER"
)

func ParseTravelStatus(s string) (TravelStatus, error) {
	switch s {
	case "", notAttemptedName:
		return TravelStatusNotAttempted, nil
	case string(TravelStatusTraveled), string(TravelStatusNotTraveled), string(TravelStatusNoAnswer):
		return TravelStatus(s), nil
	}
	return "", fmt.Errorf("unknown travel status %q", s)
}

func (t TravelStatus) IsValid() bool {
	_, err := ParseTravelStatus(string(t))
	return err == nil && t != notAttemptedName
}

func (t TravelStatus) String() string {
	if t == TravelStatusNotAttempted {
		return notAttemptedName
	}
	return string(t)
}

func (t TravelStatus) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TravelStatus) UnmarshalText(b []byte) error {
	v, err := ParseTravelStatus(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
