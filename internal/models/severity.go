package models

import (
	"fmt"
	"strings"
)

// Severity represents the impact level of a finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// severityRank orders severities: CRITICAL (5) > HIGH (4) > MEDIUM (3) > LOW (2) > INFO (1).
// Unknown values rank 0 and therefore never reach any threshold.
var severityRank = map[Severity]int{
	SeverityCritical: 5,
	SeverityHigh:     4,
	SeverityMedium:   3,
	SeverityLow:      2,
	SeverityInfo:     1,
}

// Severities lists every valid severity from most to least severe.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// Rank returns the numeric rank of s; higher is more severe.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Valid reports whether s is one of the five known severities.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is as severe as threshold or more.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Valid() && s.Rank() >= threshold.Rank()
}

// ParseSeverity converts a case-insensitive severity name into a Severity.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid severity %q; valid values: CRITICAL, HIGH, MEDIUM, LOW, INFO", v)
	}
	return s, nil
}
