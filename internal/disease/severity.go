package disease

import "fmt"

// Severity grades how pronounced a predicted condition is.
type Severity string

const (
	SeverityNone      Severity = "none"
	SeverityUncertain Severity = "uncertain"
	SeverityMild      Severity = "mild"
	SeverityModerate  Severity = "moderate"
	SeveritySevere    Severity = "severe"
)

// Severity thresholds on the raw class confidence.
const (
	uncertainBelow = 0.3
	mildBelow      = 0.6
	moderateBelow  = 0.8
)

// SeverityFor derives the severity tag of a class from its confidence.
// Healthy is always none.
func SeverityFor(l Label, confidence float64) Severity {
	if l == Healthy {
		return SeverityNone
	}
	switch {
	case confidence < uncertainBelow:
		return SeverityUncertain
	case confidence < mildBelow:
		return SeverityMild
	case confidence < moderateBelow:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// Urgency is how soon guidance should be acted upon.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency validates an urgency name.
func ParseUrgency(s string) (Urgency, error) {
	switch u := Urgency(s); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return u, nil
	}
	return "", fmt.Errorf("invalid urgency %q (must be one of: low, medium, high)", s)
}
