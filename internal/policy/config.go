package policy

// Gate domains understood by the enforcement block.
const (
	DomainMisconfiguration = "misconfiguration"
	DomainSecrets          = "secrets"
)

// PolicyConfig is the parsed form of an iacguard.yaml policy file.
type PolicyConfig struct {
	Version      int                          `yaml:"version"`
	Rules        map[string]RuleConfig        `yaml:"rules"`
	Enforcement  map[string]EnforcementConfig `yaml:"enforcement"`
	Secrets      SecretsConfig                `yaml:"secrets"`
	Suppressions []string                     `yaml:"suppressions"`
}

// RuleConfig overrides the behaviour of a single rule.
type RuleConfig struct {
	Enabled  *bool              `yaml:"enabled,omitempty"`
	Severity string             `yaml:"severity,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
}

// EnforcementConfig sets the gate threshold of one domain.
type EnforcementConfig struct {
	FailOnSeverity string `yaml:"fail_on_severity"`
}

// SecretsConfig tunes the entropy strategy of the secret scanner. Zero values
// mean "use the scanner default".
type SecretsConfig struct {
	EntropyThreshold float64  `yaml:"entropy_threshold,omitempty"`
	MinLength        int      `yaml:"min_length,omitempty"`
	Placeholders     []string `yaml:"placeholders,omitempty"`
}

// RuleEnabled reports whether ruleID is enabled. Rules are enabled unless the
// policy explicitly sets enabled: false.
func (c *PolicyConfig) RuleEnabled(ruleID string) bool {
	if c == nil {
		return true
	}
	rc, ok := c.Rules[ruleID]
	if !ok || rc.Enabled == nil {
		return true
	}
	return *rc.Enabled
}
