// pkg/wxerr/util.go

package wxerr

import (
	"context"
	"strings"
)

var debugMode bool

// SetDebugMode toggles verbose error output for the process.
func SetDebugMode(enabled bool) { debugMode = enabled }

// DebugEnabled reports whether verbose error output is on.
func DebugEnabled() bool { return debugMode }

var summaryKeywords = []string{"error", "fail", "panic", "timeout", "fatal", "cannot"}

// ExtractSummary condenses noisy command output into a short diagnostic
// line: up to maxCandidates lines containing an error keyword, joined with
// " - ". Falls back to the first non-empty line, or a placeholder when the
// output is blank.
func ExtractSummary(_ context.Context, output string, maxCandidates int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "No output provided."
	}

	var candidates []string
	var firstLine string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if firstLine == "" {
			firstLine = line
		}
		lower := strings.ToLower(line)
		for _, kw := range summaryKeywords {
			if strings.Contains(lower, kw) {
				candidates = append(candidates, line)
				break
			}
		}
		if len(candidates) >= maxCandidates {
			break
		}
	}

	if len(candidates) == 0 {
		return firstLine
	}
	return strings.Join(candidates, " - ")
}
