// pkg/wxerr/util_test.go
package wxerr

import (
	"context"
	"testing"
)

func TestSetDebugMode(t *testing.T) {
	original := debugMode
	defer func() { debugMode = original }()

	SetDebugMode(true)
	if !DebugEnabled() {
		t.Error("debug mode should be enabled")
	}

	SetDebugMode(false)
	if DebugEnabled() {
		t.Error("debug mode should be disabled")
	}
}

func TestExtractSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name          string
		output        string
		maxCandidates int
		want          string
	}{
		{
			name:          "empty output",
			output:        "",
			maxCandidates: 3,
			want:          "No output provided.",
		},
		{
			name:          "whitespace only",
			output:        "   \n\n   ",
			maxCandidates: 3,
			want:          "No output provided.",
		},
		{
			name:          "single error line",
			output:        "Error: connection refused",
			maxCandidates: 3,
			want:          "Error: connection refused",
		},
		{
			name:          "keyword lines extracted from noise",
			output:        "Ign:1 http://archive.ubuntu.com noble InRelease\nErr:2 http://archive.ubuntu.com noble-updates InRelease\nTemporary failure resolving 'archive.ubuntu.com'",
			maxCandidates: 3,
			want:          "Temporary failure resolving 'archive.ubuntu.com'",
		},
		{
			name:          "multiple candidates joined",
			output:        "Collecting requests\nERROR: Could not find a version that satisfies the requirement reqests\nERROR: No matching distribution found for reqests",
			maxCandidates: 2,
			want:          "ERROR: Could not find a version that satisfies the requirement reqests - ERROR: No matching distribution found for reqests",
		},
		{
			name:          "candidates capped",
			output:        "error one\nerror two\nerror three\nerror four",
			maxCandidates: 2,
			want:          "error one - error two",
		},
		{
			name:          "no keyword falls back to first line",
			output:        "Started weather-data.service.\ncollected 3 stations",
			maxCandidates: 3,
			want:          "Started weather-data.service.",
		},
		{
			name:          "mixed case keywords",
			output:        "FATAL: database locked\nCannot access state file",
			maxCandidates: 3,
			want:          "FATAL: database locked - Cannot access state file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractSummary(ctx, tt.output, tt.maxCandidates); got != tt.want {
				t.Errorf("ExtractSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}
