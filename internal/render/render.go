// Package render formats scan findings for the three output formats the
// CLI supports: colored text tables, Markdown reports, and JSON.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/nosecrets/nosecrets/pkg/scan"
)

// Summary carries the scan-wide counters shown alongside findings.
type Summary struct {
	FilesScanned int64
	FilesSkipped int64
	TotalBytes   int64
	Duration     time.Duration
}

// severityColor maps a severity to the color used in text-format rows.
var severityColor = map[string]*color.Color{
	"critical": color.New(color.FgRed, color.Bold),
	"high":     color.New(color.FgRed),
	"medium":   color.New(color.FgYellow),
	"low":      color.New(color.FgCyan),
}

// IsTerminal reports whether stdout is attached to a terminal, the same
// check the teacher's CLI uses to decide whether to color text output.
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// Text renders findings as a colored table followed by a summary line.
// When useColor is false, severities are printed as plain text.
func Text(findings []scan.Finding, summary Summary, useColor bool) string {
	var buf bytes.Buffer

	if len(findings) == 0 {
		fmt.Fprintln(&buf, paint(useColor, color.FgGreen, "no secrets found"))
	} else {
		table := tablewriter.NewTable(&buf, tablewriter.WithRowAutoWrap(tw.WrapNone))
		table.Header([]string{"Severity", "Path", "Line:Col", "Rule", "Preview", "Fingerprint"})

		for _, f := range findings {
			sev := string(f.Severity)
			if useColor {
				if c, ok := severityColor[sev]; ok {
					sev = c.Sprint(sev)
				}
			}
			table.Append([]string{
				sev,
				f.Path,
				fmt.Sprintf("%d:%d", f.Line, f.Column),
				f.RuleName,
				f.RedactedPreview,
				f.Fingerprint,
			})
		}
		table.Render()
	}

	fmt.Fprintf(&buf, "\nfiles scanned: %d, skipped: %d, content: %s, duration: %s\n",
		summary.FilesScanned, summary.FilesSkipped,
		humanize.Bytes(uint64(summary.TotalBytes)), summary.Duration)

	return buf.String()
}

func paint(useColor bool, attr color.Attribute, s string) string {
	if !useColor {
		return s
	}
	return color.New(attr).Sprint(s)
}

// JSON renders findings as the JSON array documented in the external
// interfaces: one object per finding. scan.Finding's rawSecret field is
// unexported, so it can never be marshaled regardless of what this
// function does.
func JSON(findings []scan.Finding) (string, error) {
	if findings == nil {
		findings = []scan.Finding{}
	}
	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding findings as JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// Markdown renders a findings report suitable for pasting into a PR
// description or CI summary.
func Markdown(findings []scan.Finding, scanPath string, summary Summary) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Secret Scan Report\n\n**Scanned:** `%s`\n\n", scanPath)
	fmt.Fprintf(&buf, "| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&buf, "| Files scanned | %d |\n", summary.FilesScanned)
	fmt.Fprintf(&buf, "| Files skipped | %d |\n", summary.FilesSkipped)
	fmt.Fprintf(&buf, "| Content scanned | %s |\n", humanize.Bytes(uint64(summary.TotalBytes)))
	fmt.Fprintf(&buf, "| Findings | %d |\n", len(findings))
	fmt.Fprintf(&buf, "| Duration | %s |\n\n", summary.Duration)

	if len(findings) == 0 {
		fmt.Fprintln(&buf, "No secrets found.")
		return buf.String()
	}

	fmt.Fprintln(&buf, "## Findings")
	for _, f := range findings {
		fmt.Fprintf(&buf, "\n### `%s:%d`\n\n", f.Path, f.Line)
		fmt.Fprintf(&buf, "- **Rule:** %s (%s, severity %s)\n", f.RuleName, f.RuleID, f.Severity)
		fmt.Fprintf(&buf, "- **Match:** `%s`\n", f.RedactedPreview)
		fmt.Fprintf(&buf, "- **Fingerprint:** `%s`\n", f.Fingerprint)
	}
	return buf.String()
}
