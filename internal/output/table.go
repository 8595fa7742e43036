package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
)

// TableOptions controls which columns RenderTable renders and how severity is coloured.
type TableOptions struct {
	// Colored wraps severity labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeSuppressed renders suppressed findings with a marker instead of
	// hiding them.
	IncludeSuppressed bool

	// IncludeLocation adds a LOCATION column with file:line.
	IncludeLocation bool
}

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.Severity, colored bool) string {
	s := string(sev)
	if !colored {
		return s
	}
	if code := severityColor(sev); code != "" {
		return code + s + ansiReset
	}
	return s
}

func severityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return ansiBoldRed
	case models.SeverityHigh:
		return ansiRed
	case models.SeverityMedium:
		return ansiYellow
	case models.SeverityLow:
		return ansiBlue
	default:
		return ""
	}
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// severityCell returns the severity padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay visually aligned regardless of terminal ANSI support.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	code := severityColor(sev)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max runes for ID/label columns.
// A single-char ellipsis replaces the last rune when truncation occurs.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// FormatLocation renders a location as "file:line", or "" when no file is known.
func FormatLocation(loc models.Location) string {
	if loc.File == "" {
		return ""
	}
	if loc.StartLine <= 0 {
		return loc.File
	}
	return fmt.Sprintf("%s:%d", loc.File, loc.StartLine)
}

// RenderTable writes a one-line header, a findings table, and the gate
// outcome to w. Suppressed findings are hidden unless opts.IncludeSuppressed.
//
// Column order:
//
//	SEVERITY  RULE  ADDRESS  [LOCATION]  MESSAGE
func RenderTable(w io.Writer, report *models.ScanReport, opts TableOptions) {
	s := report.Summary
	fmt.Fprintf(w,
		"Resources: %d  Files: %d  Findings: %d  Suppressed: %d\n",
		s.Resources,
		s.FilesScanned,
		s.TotalFindings,
		s.Suppressed,
	)
	fmt.Fprintln(w)

	rows := make([]models.Finding, 0, len(report.Findings))
	for _, f := range report.Findings {
		if f.Suppressed && !opts.IncludeSuppressed {
			continue
		}
		rows = append(rows, f)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No findings.")
	} else {
		renderRows(w, rows, opts)
	}

	fmt.Fprintln(w)
	renderGate(w, report.Gates.Misconfiguration)
	renderGate(w, report.Gates.Secrets)
}

func renderRows(w io.Writer, rows []models.Finding, opts TableOptions) {
	// Fixed column display widths.
	const (
		wSeverity = 10
		wRule     = 26
		wAddress  = 40
		wLocation = 30
		wMessage  = 60
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wSeverity, "SEVERITY"))
	hb.WriteString(fmt.Sprintf("  %-*s", wRule, "RULE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wAddress, "ADDRESS"))
	if opts.IncludeLocation {
		hb.WriteString(fmt.Sprintf("  %-*s", wLocation, "LOCATION"))
	}
	hb.WriteString("  MESSAGE")
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)+wMessage-len("MESSAGE")))

	for _, f := range rows {
		var rb strings.Builder
		rb.WriteString(severityCell(f.Severity, wSeverity, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*s", wRule, truncateField(f.RuleID, wRule)))
		rb.WriteString(fmt.Sprintf("  %-*s", wAddress, truncateField(f.Address, wAddress)))
		if opts.IncludeLocation {
			rb.WriteString(fmt.Sprintf("  %-*s", wLocation, truncateField(FormatLocation(f.Location), wLocation)))
		}
		msg := f.Message
		if f.Suppressed {
			msg = "[suppressed] " + msg
		}
		rb.WriteString("  " + ShortenMessage(msg, wMessage))
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}

func renderGate(w io.Writer, g models.GateDecision) {
	status := "PASS"
	if !g.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "Gate %-18s %s  (threshold %s, %d at or above)\n", g.Category+":", status, g.Threshold, g.Count)
}
