package suppression

import (
	"fmt"
	"time"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Result is the outcome of Resolve.
type Result struct {
	// Findings is a copy of the input with Suppressed/SuppressedBy set.
	Findings []models.Finding
	// Stale holds one STALE_SUPPRESSION finding per expired entry.
	Stale []models.Finding
}

// Resolve marks every finding covered by a live entry as suppressed. The first
// matching entry wins. Expired entries never suppress; each yields exactly
// one stale finding whether or not it matches anything. The input slice is
// not modified.
func Resolve(findings []models.Finding, entries []Entry, now time.Time) Result {
	live := make([]Entry, 0, len(entries))
	var stale []models.Finding
	for _, e := range entries {
		if e.Expired(now) {
			stale = append(stale, staleFinding(e))
			continue
		}
		live = append(live, e)
	}

	out := make([]models.Finding, len(findings))
	copy(out, findings)
	for i := range out {
		for _, e := range live {
			if e.Matches(out[i]) {
				out[i].Suppressed = true
				out[i].SuppressedBy = e.String()
				break
			}
		}
	}

	return Result{Findings: out, Stale: stale}
}

func staleFinding(e Entry) models.Finding {
	expired := e.Expires.Format(dateLayout)
	address := e.origin()
	if address == "" {
		address = e.String()
	}
	meta := map[string]any{
		"rule":    e.RuleID,
		"expired": expired,
	}
	if e.Scope != "" {
		meta["scope"] = e.Scope
	}
	return models.Finding{
		RuleID:         models.RuleStaleSuppression,
		Title:          "Stale suppression entry",
		Severity:       models.SeverityInfo,
		Category:       models.CategorySuppression,
		Address:        address,
		Message:        fmt.Sprintf("stale suppression entry, rule %s, expired on %s", e.RuleID, expired),
		Recommendation: "Fix the underlying finding or renew the entry with a new expiry date.",
		Location:       models.Location{File: e.Source, StartLine: e.Line},
		Metadata:       meta,
	}
}
