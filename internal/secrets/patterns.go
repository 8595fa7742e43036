package secrets

import (
	"regexp"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Pattern is a fixed, high-confidence credential format.
type Pattern struct {
	ID          string
	Description string
	Regex       *regexp.Regexp
	Confidence  float64
	Severity    models.Severity
}

// PatternGenericHighEntropy is the ID of matches from the entropy strategy.
const PatternGenericHighEntropy = "GENERIC_HIGH_ENTROPY"

// DefaultPatterns returns the built-in pattern set. Each regex's first
// submatch, when present, is the secret; otherwise the whole match is.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			ID:          "AWS_ACCESS_KEY_ID",
			Description: "AWS access key ID",
			Regex:       regexp.MustCompile(`\b((?:AKIA|ASIA)[0-9A-Z]{16})\b`),
			Confidence:  0.95,
			Severity:    models.SeverityHigh,
		},
		{
			ID:          "GITHUB_TOKEN",
			Description: "GitHub token",
			Regex:       regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{36})\b`),
			Confidence:  0.95,
			Severity:    models.SeverityHigh,
		},
		{
			ID:          "PRIVATE_KEY",
			Description: "Private key block",
			Regex:       regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY(?: BLOCK)?-----`),
			Confidence:  0.99,
			Severity:    models.SeverityCritical,
		},
		{
			ID:          "SLACK_TOKEN",
			Description: "Slack token",
			Regex:       regexp.MustCompile(`\b(xox[baprs]-[0-9A-Za-z-]{10,})\b`),
			Confidence:  0.9,
			Severity:    models.SeverityHigh,
		},
		{
			ID:          "GOOGLE_API_KEY",
			Description: "Google API key",
			Regex:       regexp.MustCompile(`\b(AIza[0-9A-Za-z_-]{35})\b`),
			Confidence:  0.9,
			Severity:    models.SeverityHigh,
		},
		{
			ID:          "AZURE_STORAGE_ACCOUNT_KEY",
			Description: "Azure storage connection string key",
			Regex:       regexp.MustCompile(`AccountKey=([A-Za-z0-9+/]{40,}={0,2})`),
			Confidence:  0.95,
			Severity:    models.SeverityHigh,
		},
		{
			ID:          "AZURE_CLIENT_SECRET",
			Description: "Azure AD client secret",
			Regex:       regexp.MustCompile(`(?:^|[^A-Za-z0-9_~.-])([A-Za-z0-9_~.-]{3}\dQ~[A-Za-z0-9_~.-]{31,34})(?:$|[^A-Za-z0-9_~.-])`),
			Confidence:  0.85,
			Severity:    models.SeverityHigh,
		},
		{
			ID:          "JWT",
			Description: "JSON web token",
			Regex:       regexp.MustCompile(`\b(eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,})`),
			Confidence:  0.8,
			Severity:    models.SeverityMedium,
		},
	}
}
