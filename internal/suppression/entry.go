// Package suppression parses suppression lists and applies them to findings.
//
// A suppression entry has the form
//
//	<rule-id>[:<path-glob>][:<expiry>]
//
// where path-glob is matched against a finding's address or source file and
// expiry is a date (2006-01-02, valid through the end of that day UTC) or an
// RFC3339 timestamp. Entries past their expiry never suppress anything; each
// one is reported as a STALE_SUPPRESSION finding instead.
package suppression

import (
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Entry is one parsed suppression line.
type Entry struct {
	RuleID string
	// Scope is an address or a doublestar glob. Empty matches everywhere.
	Scope string
	// Expires is the instant after which the entry is stale. Zero never expires.
	Expires time.Time

	Source string
	Line   int
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.Expires.IsZero() && now.After(e.Expires)
}

// Matches reports whether the entry covers f, ignoring expiry.
func (e Entry) Matches(f models.Finding) bool {
	if e.RuleID != f.RuleID {
		return false
	}
	if e.Scope == "" || e.Scope == f.Address {
		return true
	}
	if ok, _ := doublestar.Match(e.Scope, f.Address); ok {
		return true
	}
	if f.Location.File != "" {
		if ok, _ := doublestar.Match(e.Scope, f.Location.File); ok {
			return true
		}
	}
	return false
}

// String renders the entry in file syntax.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.RuleID)
	if e.Scope != "" {
		b.WriteByte(':')
		b.WriteString(e.Scope)
	}
	if !e.Expires.IsZero() {
		b.WriteByte(':')
		b.WriteString(e.Expires.Format(time.RFC3339))
	}
	return b.String()
}

// origin names where the entry was declared, for messages.
func (e Entry) origin() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d", e.Source, e.Line)
	case e.Source != "":
		return e.Source
	}
	return ""
}
