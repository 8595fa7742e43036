package models

import "time"

// Category groups findings by the component that produced them. Gate
// thresholds are applied per category family (see report.Gate).
type Category string

const (
	CategoryMisconfiguration Category = "misconfiguration"
	CategorySecret           Category = "secret"
	CategoryEngine           Category = "engine"
	CategoryGraph            Category = "graph"
	CategorySuppression      Category = "suppression"
)

// Rule IDs emitted by the scanner itself rather than by a policy rule.
const (
	RuleEngineError       = "ENGINE_ERROR"
	RuleDanglingReference = "DANGLING_REFERENCE"
	RuleDuplicateAddress  = "DUPLICATE_ADDRESS"
	RuleInvalidResource   = "INVALID_RESOURCE"
	RuleStaleSuppression  = "STALE_SUPPRESSION"
)

// Finding is a single reported issue tied to one rule and one resource or
// file location. It is the atomic output unit of every scanner component.
// Two findings are duplicates when RuleID and Address both match.
type Finding struct {
	RuleID         string         `json:"rule_id"`
	Title          string         `json:"title,omitempty"`
	Severity       Severity       `json:"severity"`
	Category       Category       `json:"category"`
	Address        string         `json:"address"`
	ResourceType   string         `json:"resource_type,omitempty"`
	Message        string         `json:"message"`
	Recommendation string         `json:"recommendation,omitempty"`
	Location       Location       `json:"location"`
	Suppressed     bool           `json:"suppressed"`
	SuppressedBy   string         `json:"suppressed_by,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// SecretStrategy names the detection strategy behind a SecretMatch.
type SecretStrategy string

const (
	StrategyPattern SecretStrategy = "pattern"
	StrategyEntropy SecretStrategy = "entropy"
)

// SecretMatch is a credential-like token found in raw text.
// Excerpt is always masked; the full secret is never stored.
type SecretMatch struct {
	PatternID   string         `json:"pattern_id"`
	Description string         `json:"description,omitempty"`
	File        string         `json:"file"`
	Line        int            `json:"line"`
	Excerpt     string         `json:"excerpt"`
	Confidence  float64        `json:"confidence"`
	Entropy     float64        `json:"entropy,omitempty"`
	Severity    Severity       `json:"severity"`
	Strategy    SecretStrategy `json:"strategy"`
}

// GateDecision is the pass/fail outcome for one gated category family.
// It is created once per scan run and never mutated.
type GateDecision struct {
	Category  string   `json:"category"`
	Threshold Severity `json:"threshold"`
	Count     int      `json:"count"`
	Pass      bool     `json:"pass"`
}

// Summary aggregates counts across all findings.
type Summary struct {
	TotalFindings    int `json:"total_findings"`
	CriticalFindings int `json:"critical_findings"`
	HighFindings     int `json:"high_findings"`
	MediumFindings   int `json:"medium_findings"`
	LowFindings      int `json:"low_findings"`
	InfoFindings     int `json:"info_findings"`
	Suppressed       int `json:"suppressed"`
	Resources        int `json:"resources"`
	Edges            int `json:"edges"`
	FilesScanned     int `json:"files_scanned"`
}

// Gates holds both independent gate decisions of a scan.
type Gates struct {
	Misconfiguration GateDecision `json:"misconfiguration"`
	Secrets          GateDecision `json:"secrets"`
}

// ScanReport is the structured output of a single scan run. Rendering is left
// to the output package.
type ScanReport struct {
	ReportID    string         `json:"report_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Summary     Summary        `json:"summary"`
	Findings    []Finding      `json:"findings"`
	Secrets     []SecretMatch  `json:"secrets,omitempty"`
	Gates       Gates          `json:"gates"`
	Pass        bool           `json:"pass"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
