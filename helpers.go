package main

import (
	"fmt"
	"strconv"
	"strings"
)

// truncate truncates a string to maxLen, padding with spaces if shorter
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return fmt.Sprintf("%-*s", maxLen, s)
	}
	return s[:maxLen-1] + "…"
}

// formatPorts renders a port list, collapsing the tail into "+N" when it
// would exceed maxWidth characters.
func formatPorts(ports []int, maxWidth int) string {
	if len(ports) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(strconv.Itoa(ports[0]))

	for i := 1; i < len(ports); i++ {
		next := ", " + strconv.Itoa(ports[i])
		suffix := ""
		if rest := len(ports) - i - 1; rest > 0 {
			suffix = " +" + strconv.Itoa(rest+1)
		}
		if b.Len()+len(next)+len(suffix) > maxWidth {
			b.WriteString(" +" + strconv.Itoa(len(ports)-i))
			break
		}
		b.WriteString(next)
	}

	return b.String()
}

// capitalize uppercases the first byte for status-line display
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// summarizeKills renders kill outcomes for the status line,
// e.g. "killed 1, 1 not found".
func summarizeKills(outcomes []KillOutcome) string {
	if len(outcomes) == 0 {
		return "no listener to kill"
	}

	var killed, notFound, failed int
	for _, o := range outcomes {
		switch o.Result {
		case KillOK:
			killed++
		case KillNotFound:
			notFound++
		default:
			failed++
		}
	}

	parts := []string{}
	if killed > 0 {
		parts = append(parts, fmt.Sprintf("killed %d", killed))
	}
	if notFound > 0 {
		parts = append(parts, fmt.Sprintf("%d not found", notFound))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	return strings.Join(parts, ", ")
}

// summarizeResults renders formatter results for the status line,
// e.g. "2 formatted, 3 unchanged".
func summarizeResults(results []FileResult) string {
	if len(results) == 0 {
		return "no source files found"
	}

	var formatted, unchanged, failed int
	for _, r := range results {
		switch r.Outcome {
		case FileFormatted:
			formatted++
		case FileUnchanged:
			unchanged++
		default:
			failed++
		}
	}

	parts := []string{}
	if formatted > 0 {
		parts = append(parts, fmt.Sprintf("%d formatted", formatted))
	}
	if unchanged > 0 {
		parts = append(parts, fmt.Sprintf("%d unchanged", unchanged))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	return strings.Join(parts, ", ")
}
