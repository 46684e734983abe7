// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/chronos/internal/hypothesis"
	"github.com/pdiddy/chronos/pkg/types"
)

// runParse runs the parse command on input with the given flags and
// returns stdout and stderr.
func runParse(t *testing.T, input string, flags map[string]string) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "research_questions.txt")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	var stdout, stderr bytes.Buffer
	parseCmd.SetOut(&stdout)
	parseCmd.SetErr(&stderr)
	t.Cleanup(func() {
		parseCmd.SetOut(nil)
		parseCmd.SetErr(nil)
		parseCmd.Flags().Set("json", "false")
		parseCmd.Flags().Set("out-dir", "")
	})
	for k, v := range flags {
		require.NoError(t, parseCmd.Flags().Set(k, v))
	}

	require.NoError(t, parseCmd.RunE(parseCmd, []string{path}))
	return stdout.String(), stderr.String()
}

func TestParseCommandWarnsWhenNothingParsed(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
	}{
		{"text", nil},
		{"json", map[string]string{"json": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr := runParse(t, "The model declined to answer.\n", tt.flags)
			assert.Contains(t, stderr, types.NoHypothesesWarning)
		})
	}
}

func TestParseCommandJSON(t *testing.T) {
	input := "**H1: Venous Congestion**\n**Claim Statement:** Congestion causes paralysis.\n" +
		strings.Repeat("=", 40) + "\n**H2: Second**\n**Mechanism:** stasis\n"

	stdout, stderr := runParse(t, input, map[string]string{"json": "true"})
	assert.NotContains(t, stderr, "warning")

	var res hypothesis.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Venous Congestion", res.Records[0].DomainTitle)
	assert.Equal(t, 2, res.Diagnostics.Assembled)
}

func TestParseCommandWritesArtifacts(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "phase4")
	_, stderr := runParse(t, "**H1: A**\n**Claim:** c\n", map[string]string{"out-dir": outDir})

	matches, err := filepath.Glob(filepath.Join(outDir, "hypotheses_*.yaml"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, stderr, matches[0])
}
