package policy

// GetThreshold returns the numeric parameter key of ruleID, or defaultValue
// when the policy is nil or does not set it.
func GetThreshold(ruleID, key string, defaultValue float64, cfg *PolicyConfig) float64 {
	if cfg == nil {
		return defaultValue
	}
	v, ok := cfg.Rules[ruleID].Params[key]
	if !ok {
		return defaultValue
	}
	return v
}
