// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hypothesis

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	raw := fullCompactBlock + "\n" + strings.Repeat("=", 30) + "\n" + detailedBlock
	res := Parse(raw)
	require.Len(t, res.Records, 2)

	a, err := WriteArtifacts(dir, "20260102_150405", raw, res)
	require.NoError(t, err)

	assert.FileExists(t, a.Raw)
	assert.Contains(t, a.Raw, "research_questions_20260102_150405.txt")
	data, err := os.ReadFile(a.Raw)
	require.NoError(t, err)
	assert.Equal(t, raw, string(data))

	parsed, err := os.ReadFile(a.Parsed)
	require.NoError(t, err)
	assert.Contains(t, string(parsed), "H1: Vascular Questions")
	assert.Contains(t, string(parsed), "H4: Spinal Venous Congestion")

	js, err := os.ReadFile(a.JSON)
	require.NoError(t, err)
	require.NoError(t, ValidateJSON(js))
	assert.Contains(t, string(js), `"modern_relevance": null`)

	back, err := ReadYAML(a.YAML)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(res, back, cmpopts.EquateEmpty()))
}

func TestMarshalJSONEmptyResult(t *testing.T) {
	data, err := MarshalJSON(Parse(""))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hypotheses": []`)
}

func TestValidateJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing diagnostics", `{"hypotheses": []}`},
		{"zero id", `{"hypotheses": [{"sequence_id": 0, "domain_title": "x", "compact_summary": {}, "detailed_fields": null}],
			"diagnostics": {"blocks_seen": 1, "header_rejected": 0, "empty_rejected": 0, "assembled": 1}}`},
		{"unknown section", `{"hypotheses": [{"sequence_id": 1, "domain_title": "x", "compact_summary": {}, "detailed_fields": {"the_vibe": "x"}}],
			"diagnostics": {"blocks_seen": 1, "header_rejected": 0, "empty_rejected": 0, "assembled": 1}}`},
		{"not json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateJSON([]byte(tt.doc)))
		})
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Parse("**H2: Empty Mechanism**\n*Claim:* c\n*Mechanism:*")))
	out := buf.String()
	assert.Contains(t, out, "Parsed 1 hypotheses")
	assert.Contains(t, out, "Claim:\nc\n")
	assert.Contains(t, out, "Mechanism:\n(empty)\n")
	assert.NotContains(t, out, "Historical Source")

	buf.Reset()
	require.NoError(t, Render(&buf, Parse("nothing")))
	assert.Contains(t, buf.String(), "WARNING: no hypotheses were extracted")
}
