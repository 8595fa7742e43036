// Package secrets finds credential-like tokens in raw text. Two strategies
// are combined: fixed high-confidence patterns and Shannon entropy over
// values assigned to secret-looking identifiers.
package secrets

import (
	"bytes"
	"context"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Defaults for Options.
const (
	DefaultEntropyThreshold = 3.5
	DefaultMinLength        = 8
)

// Options configures a Scanner. Zero values select the defaults.
type Options struct {
	EntropyThreshold float64
	MinLength        int
	// Placeholders extends the built-in placeholder denylist.
	Placeholders []string
	Workers      int
	// Patterns replaces DefaultPatterns when non-nil.
	Patterns []Pattern
}

// Scanner is safe for concurrent use.
type Scanner struct {
	threshold    float64
	minLength    int
	workers      int
	patterns     []Pattern
	placeholders map[string]struct{}
}

// NewScanner returns a Scanner configured by opts.
func NewScanner(opts Options) *Scanner {
	s := &Scanner{
		threshold:    opts.EntropyThreshold,
		minLength:    opts.MinLength,
		workers:      opts.Workers,
		patterns:     opts.Patterns,
		placeholders: make(map[string]struct{}),
	}
	if s.threshold <= 0 {
		s.threshold = DefaultEntropyThreshold
	}
	if s.minLength <= 0 {
		s.minLength = DefaultMinLength
	}
	if s.workers <= 0 {
		s.workers = runtime.NumCPU()
	}
	if s.patterns == nil {
		s.patterns = DefaultPatterns()
	}
	for _, p := range defaultPlaceholders {
		s.placeholders[p] = struct{}{}
	}
	for _, p := range opts.Placeholders {
		s.placeholders[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return s
}

// ScanText scans one file's content. Binary content yields no matches.
// Results are ordered by line, then pattern ID, with at most one match per
// (line, pattern ID).
func (s *Scanner) ScanText(file string, data []byte) []models.SecretMatch {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil
	}

	var out []models.SecretMatch
	for i, line := range strings.Split(string(data), "\n") {
		out = append(out, s.scanLine(file, i+1, strings.TrimSuffix(line, "\r"))...)
	}
	sortMatches(out)
	return out
}

func (s *Scanner) scanLine(file string, lineNo int, line string) []models.SecretMatch {
	var out []models.SecretMatch
	for _, p := range s.patterns {
		m := p.Regex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		secret := m[0]
		if len(m) > 1 && m[1] != "" {
			secret = m[1]
		}
		out = append(out, models.SecretMatch{
			PatternID:   p.ID,
			Description: p.Description,
			File:        file,
			Line:        lineNo,
			Excerpt:     mask(secret),
			Confidence:  p.Confidence,
			Severity:    p.Severity,
			Strategy:    models.StrategyPattern,
		})
	}
	if len(out) > 0 {
		return out
	}

	for _, m := range assignmentRe.FindAllStringSubmatch(line, -1) {
		identifier, value := m[1], m[2]
		if !hintsSecret(identifier) || len(value) < s.minLength || s.isPlaceholder(value) {
			continue
		}
		h := shannon(value)
		if h < s.threshold {
			continue
		}
		return []models.SecretMatch{{
			PatternID:   PatternGenericHighEntropy,
			Description: "High-entropy value assigned to " + identifier,
			File:        file,
			Line:        lineNo,
			Excerpt:     mask(value),
			Confidence:  entropyConfidence(h, s.threshold),
			Entropy:     h,
			Severity:    models.SeverityMedium,
			Strategy:    models.StrategyEntropy,
		}}
	}
	return nil
}

// ScanFiles scans files in parallel. On cancellation it returns ctx.Err()
// and no matches.
func (s *Scanner) ScanFiles(ctx context.Context, files []models.SourceFile) ([]models.SecretMatch, error) {
	results := make([][]models.SecretMatch, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range files {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.ScanText(files[i].Path, files[i].Data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []models.SecretMatch
	for _, r := range results {
		out = append(out, r...)
	}
	sortMatches(out)
	return out, nil
}

// mask keeps the first four characters of a secret.
func mask(secret string) string {
	r := []rune(secret)
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r) + "****"
}

// entropyConfidence grows from 0.5 at the threshold towards 0.9.
func entropyConfidence(h, threshold float64) float64 {
	c := 0.5 + (h-threshold)*0.2
	if c > 0.9 {
		c = 0.9
	}
	return c
}

func sortMatches(ms []models.SecretMatch) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].File != ms[j].File {
			return ms[i].File < ms[j].File
		}
		if ms[i].Line != ms[j].Line {
			return ms[i].Line < ms[j].Line
		}
		return ms[i].PatternID < ms[j].PatternID
	})
}
