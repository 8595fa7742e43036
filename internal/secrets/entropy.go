package secrets

import (
	"math"
	"regexp"
	"strings"
)

// assignmentRe finds `identifier = "value"`, `identifier: "value"` and
// `identifier => "value"` with single or double quotes.
var assignmentRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_.-]*)["']?\s*(?:=>|=|:)\s*["']([^"'\s]+)["']`)

// secretHints are identifier fragments that suggest the value is a secret.
var secretHints = []string{"pass", "pwd", "secret", "token", "cred", "key", "auth", "signature"}

// defaultPlaceholders never count as secrets, compared case-insensitively.
var defaultPlaceholders = []string{
	"changeme",
	"password",
	"example",
	"placeholder",
	"dummy",
	"test",
	"redacted",
	"00000000-0000-0000-0000-000000000000",
	"127.0.0.1",
	"0.0.0.0",
}

var (
	xRunRe        = regexp.MustCompile(`(?i)^x{4,}$`)
	angleRe       = regexp.MustCompile(`^<[^>]*>$`)
	interpolateRe = regexp.MustCompile(`^\$\{.*\}$`)
	docIPRe       = regexp.MustCompile(`^(?:192\.0\.2|198\.51\.100|203\.0\.113)\.\d{1,3}$`)
)

// shannon returns the Shannon entropy of s in bits per byte.
func shannon(s string) float64 {
	if s == "" {
		return 0
	}
	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	n := float64(len(s))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

func hintsSecret(identifier string) bool {
	id := strings.ToLower(identifier)
	for _, h := range secretHints {
		if strings.Contains(id, h) {
			return true
		}
	}
	return false
}

func (s *Scanner) isPlaceholder(v string) bool {
	if _, ok := s.placeholders[strings.ToLower(v)]; ok {
		return true
	}
	return xRunRe.MatchString(v) ||
		angleRe.MatchString(v) ||
		interpolateRe.MatchString(v) ||
		docIPRe.MatchString(v)
}
