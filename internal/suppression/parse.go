package suppression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const dateLayout = "2006-01-02"

// dateLike matches tails such as 2025-13-45, 31/01/2026 or 2026.01.31.
var dateLike = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}([T ].*)?$`)

// ParseError reports an invalid suppression line.
type ParseError struct {
	Source string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
}

// LoadFile parses the suppression file at path.
func LoadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open suppressions %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads one entry per line from r. Blank lines and "#" comments are
// ignored. Every invalid line is reported; the returned error joins one
// *ParseError per bad line and no entries are returned in that case.
func Parse(r io.Reader, source string) ([]Entry, error) {
	var (
		entries []Entry
		errs    []error
		lineNo  int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			errs = append(errs, &ParseError{Source: source, Line: lineNo, Reason: err.Error()})
			continue
		}
		e.Source = source
		e.Line = lineNo
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read suppressions %s: %w", source, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return entries, nil
}

// ParseLines parses entries held in memory, such as the suppressions list of
// a policy file. Line numbers are the 1-based list positions.
func ParseLines(lines []string, source string) ([]Entry, error) {
	return Parse(strings.NewReader(strings.Join(lines, "\n")), source)
}

// ParseLine parses a single non-empty entry without comment handling.
func ParseLine(line string) (Entry, error) {
	line = strings.TrimSpace(line)
	ruleID, rest, hasRest := strings.Cut(line, ":")
	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return Entry{}, errors.New("missing rule ID")
	}
	if strings.ContainsAny(ruleID, " \t*?") {
		return Entry{}, fmt.Errorf("invalid rule ID %q", ruleID)
	}
	e := Entry{RuleID: ruleID}
	if !hasRest {
		return e, nil
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Entry{}, errors.New("empty scope after ':'")
	}

	// A lone second field is an expiry when it parses as one.
	if t, ok := parseExpiry(rest); ok {
		e.Expires = t
		return e, nil
	}

	// Otherwise look for the longest trailing expiry; RFC3339 values carry
	// colons of their own, so every split point is tried from the left.
	for i := 0; i < len(rest); i++ {
		if rest[i] != ':' {
			continue
		}
		scope, tail := strings.TrimSpace(rest[:i]), strings.TrimSpace(rest[i+1:])
		if t, ok := parseExpiry(tail); ok {
			if scope == "" {
				return Entry{}, errors.New("empty scope before expiry")
			}
			e.Scope = scope
			e.Expires = t
			return e, validScope(e.Scope)
		}
	}
	// Scopes may hold colons themselves (s3:// paths, file:line addresses of
	// secret findings). Only a tail that looks like a date is an expiry typo.
	if dateLike.MatchString(rest) {
		return Entry{}, fmt.Errorf("invalid expiry %q; use YYYY-MM-DD or RFC3339", rest)
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] != ':' {
			continue
		}
		if tail := strings.TrimSpace(rest[i+1:]); dateLike.MatchString(tail) {
			return Entry{}, fmt.Errorf("invalid expiry %q; use YYYY-MM-DD or RFC3339", tail)
		}
	}

	e.Scope = rest
	return e, validScope(e.Scope)
}

func parseExpiry(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if d, err := time.Parse(dateLayout, s); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC), true
	}
	return time.Time{}, false
}

func validScope(scope string) error {
	if !doublestar.ValidatePattern(scope) {
		return fmt.Errorf("invalid scope pattern %q", scope)
	}
	return nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}
