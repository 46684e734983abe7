// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hypothesis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/chronos/pkg/types"
)

func strp(s string) *string { return &s }

const fullCompactBlock = `**H-1: Vascular Questions**
**Claim Statement:** Prolonged sitting impairs spinal venous drainage.
**Historical Source:** Ollivier d'Angers, 1824.
**Modern Relevance:** Sedentary work is widespread.
**Variables:** Sitting hours; venous flow velocity.
**Mechanism:** Raised epidural venous pressure.
**Testability Score:** 8/10
**Innovation Potential:** High`

const templateBlock = `**H1: Vascular-Neurological Interactions**

**Claim Statement:**
Transient venous congestion causes episodic paralysis.

**Historical Source:**
Ollivier (1824), Traité de la moelle épinière.

**Variables:**
**Independent:** venous pressure
**Dependent:** motor function

**Testability Score:** 8/10
Feasible with dynamic MRI.

**Innovation Potential:** Moderate - fills a recognized gap`

const detailedBlock = `**H4: Spinal Venous Congestion**

**1. The Question**
How does transient spinal venous congestion contribute to episodic symptoms?

**The Spark**
Clinical observation: patients present with transient paralysis.

**Alternative Explanations to Consider**
Symptoms are functional.
Arterial rather than venous phenomena.`

func TestExtractHeader(t *testing.T) {
	tests := []struct {
		name  string
		block string
		id    int
		title string
		ok    bool
	}{
		{"plain", "**H3: Vascular Questions**", 3, "Vascular Questions", true},
		{"hyphen", "**H-3: Vascular Questions**", 3, "Vascular Questions", true},
		{"title after markers", "**H-3:** Vascular Questions", 3, "Vascular Questions", true},
		{"preamble", "Here are the results.\n\n**H12: Renal Flow**\n*Claim:* x", 12, "Renal Flow", true},
		{"lower case h", "**h7: Sleep**", 7, "Sleep", true},
		{"inner emphasis", "**H2: Role of *Qi* Flow**", 2, "Role of *Qi* Flow", true},
		{"not bold", "H3: Vascular Questions", 0, "", false},
		{"question numbering", "**Q3: Vascular Questions**", 0, "", false},
		{"zero id", "**H0: Nothing**", 0, "", false},
		{"no digits", "**H: Nothing**", 0, "", false},
		{"overflow", "**H99999999999999999999999: Big**", 0, "", false},
		{"empty title", "**H3:**\n", 0, "", false},
		{"non-ascii digits", "**H٣: Arabic**", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := ExtractHeader(tt.block)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, h.SequenceID)
			assert.Equal(t, tt.title, h.Title)
		})
	}
}

func TestExtractFieldsDualFormat(t *testing.T) {
	labeledForm := "\n*Claim:* Sitting impairs venous flow. *Historical Source:* Ollivier 1824."
	proseForm := "\nClaim: Sitting impairs venous flow. Historical Source: Ollivier 1824."

	for name, body := range map[string]string{"labeled": labeledForm, "prose": proseForm} {
		t.Run(name, func(t *testing.T) {
			c, detailed := extractFields(body)
			require.NotNil(t, c.Claim)
			assert.Equal(t, "Sitting impairs venous flow.", *c.Claim)
			require.NotNil(t, c.HistoricalSource)
			assert.Equal(t, "Ollivier 1824.", *c.HistoricalSource)
			assert.Nil(t, c.Mechanism)
			assert.Empty(t, detailed)
		})
	}
}

func TestExtractFieldsAbsentVersusEmpty(t *testing.T) {
	missing, _ := extractFields("\n*Claim:* X.\n*Testability:* 7/10")
	assert.Nil(t, missing.Mechanism)

	empty, _ := extractFields("\n*Claim:* X.\n*Mechanism:* *Testability:* 7/10")
	require.NotNil(t, empty.Mechanism)
	assert.Equal(t, "", *empty.Mechanism)
	require.NotNil(t, empty.Testability)
	assert.Equal(t, "7/10", *empty.Testability)

	blank, _ := extractFields("\n**Claim:**   \n**Mechanism:** pressure")
	require.NotNil(t, blank.Claim)
	assert.Equal(t, "", *blank.Claim)
}

func TestExtractFieldsVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want types.CompactSummary
	}{
		{
			name: "case insensitive",
			body: "\n*CLAIM:* shouting",
			want: types.CompactSummary{Claim: strp("shouting")},
		},
		{
			name: "colon outside markers",
			body: "\n**Mechanism**: venous stasis",
			want: types.CompactSummary{Mechanism: strp("venous stasis")},
		},
		{
			name: "blank line ends labeled value",
			body: "\n**Claim:** first paragraph\n\nunrelated trailing prose",
			want: types.CompactSummary{Claim: strp("first paragraph")},
		},
		{
			name: "multi-line labeled value",
			body: "\n**Modern Relevance:**\nline one\nline two\n**Mechanism:** m",
			want: types.CompactSummary{ModernRelevance: strp("line one\nline two"), Mechanism: strp("m")},
		},
		{
			name: "synonym",
			body: "\n**Claim Statement:** long form\n**Innovation:** Low",
			want: types.CompactSummary{Claim: strp("long form"), Innovation: strp("Low")},
		},
		{
			name: "labeled preferred over prose",
			body: "\nClaim: prose claim. **Claim:** labeled claim",
			want: types.CompactSummary{Claim: strp("labeled claim")},
		},
		{
			name: "label and value emphasised together",
			body: "\n**Testability Score: 7/10**\nNeeds imaging.\n**Innovation Potential: Moderate**",
			want: types.CompactSummary{Testability: strp("7/10"), Innovation: strp("Moderate")},
		},
		{
			name: "bare label inside labeled value ignored",
			body: "\n**Claim:** venous stasis\nMechanism: not a field here",
			want: types.CompactSummary{Claim: strp("venous stasis\nMechanism: not a field here")},
		},
		{
			name: "bare label after labeled value ends",
			body: "\n**Claim:** venous stasis\n\nMechanism: pressure",
			want: types.CompactSummary{Claim: strp("venous stasis"), Mechanism: strp("pressure")},
		},
		{
			name: "unknown emphasised labels stay in value",
			body: "\n**Variables:**\n**Independent:** a\n**Dependent:** b",
			want: types.CompactSummary{Variables: strp("**Independent:** a\n**Dependent:** b")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := extractFields(tt.body)
			assert.Empty(t, cmp.Diff(tt.want, got))
		})
	}
}

func TestParseScenario(t *testing.T) {
	text := fullCompactBlock + "\n" + strings.Repeat("=", 41) + "\nClosing remarks with no header at all."

	res := Parse(text)

	assert.Equal(t, types.ParseDiagnostics{BlocksSeen: 2, HeaderRejected: 1, EmptyRejected: 0, Assembled: 1}, res.Diagnostics)
	require.Len(t, res.Records, 1)

	r := res.Records[0]
	assert.Equal(t, 1, r.SequenceID)
	assert.Equal(t, "Vascular Questions", r.DomainTitle)
	assert.Empty(t, cmp.Diff(types.CompactSummary{
		Claim:            strp("Prolonged sitting impairs spinal venous drainage."),
		HistoricalSource: strp("Ollivier d'Angers, 1824."),
		ModernRelevance:  strp("Sedentary work is widespread."),
		Variables:        strp("Sitting hours; venous flow velocity."),
		Mechanism:        strp("Raised epidural venous pressure."),
		Testability:      strp("8/10"),
		Innovation:       strp("High"),
	}, r.Compact))
	assert.Nil(t, r.Detailed)
	assert.Equal(t, 8, r.TestabilityScore)
	assert.Equal(t, "High", r.InnovationLevel)
	assert.Empty(t, res.Warning())
}

func TestParseTemplateFormat(t *testing.T) {
	res := Parse(templateBlock)
	require.Len(t, res.Records, 1)

	c := res.Records[0].Compact
	require.NotNil(t, c.Claim)
	assert.Equal(t, "Transient venous congestion causes episodic paralysis.", *c.Claim)
	require.NotNil(t, c.Variables)
	assert.Equal(t, "**Independent:** venous pressure\n**Dependent:** motor function", *c.Variables)
	require.NotNil(t, c.Testability)
	assert.Equal(t, "8/10\nFeasible with dynamic MRI.", *c.Testability)
	assert.Nil(t, c.ModernRelevance)
	assert.Equal(t, 8, res.Records[0].TestabilityScore)
	assert.Equal(t, "Moderate", res.Records[0].InnovationLevel)
}

func TestParseEmphasisedScoreLines(t *testing.T) {
	text := "**H1: Venous Congestion**\n\n" +
		"**Claim Statement:** Congestion causes episodic paralysis.\n\n" +
		"**Testability Score: 8/10**\n\n" +
		"High feasibility with current technology:\n- Dynamic MRI exists\n\n" +
		"**Innovation Potential: High**\n"

	res := Parse(text)
	require.Len(t, res.Records, 1)

	r := res.Records[0]
	assert.Empty(t, cmp.Diff(types.CompactSummary{
		Claim:       strp("Congestion causes episodic paralysis."),
		Testability: strp("8/10"),
		Innovation:  strp("High"),
	}, r.Compact))
	assert.Equal(t, 8, r.TestabilityScore)
	assert.Equal(t, "High", r.InnovationLevel)
}

const detailedFeasibilityBlock = `**H2: Reversible Spinal Venous Congestion**

**The Question**
Does transient spinal venous congestion cause reversible paralysis?

**Evidence Landscape**
**Historical evidence:**
Ollivier's case series (1824) - anecdotal, no controls
**Strength:** Cross-cultural convergence increases plausibility
**Gaps:**
No systematic study of spinal venous dynamics

**Feasibility Assessment**
Testability: **HIGH** - imaging technology exists, patient population available
Resources: Moderate - requires advanced MRI access
Timeline: Short to medium-term (1-5 years)

**Possible Traps**
**Trap 5 (Historical Uncritical Acceptance):** Must verify Ollivier's observations
**Mitigation:** Use modern diagnostic criteria`

func TestParseDetailedSectionsDoNotFillCompactFields(t *testing.T) {
	res := Parse(detailedFeasibilityBlock)
	require.Len(t, res.Records, 1)

	r := res.Records[0]
	assert.Zero(t, r.Compact.Present(), "labels inside section text are not fields")
	assert.Zero(t, r.TestabilityScore)
	assert.Empty(t, r.InnovationLevel)

	feasibility, ok := r.Section(types.SectionFeasibilityAssessment)
	require.True(t, ok)
	assert.Equal(t, "Testability: **HIGH** - imaging technology exists, patient population available\n"+
		"Resources: Moderate - requires advanced MRI access\n"+
		"Timeline: Short to medium-term (1-5 years)", feasibility)

	evidence, ok := r.Section(types.SectionEvidenceLandscape)
	require.True(t, ok)
	assert.Contains(t, evidence, "**Gaps:**\nNo systematic study")
	_, ok = r.Section(types.SectionGap)
	assert.False(t, ok)

	traps, ok := r.Section(types.SectionPossibleTraps)
	require.True(t, ok)
	assert.Contains(t, traps, "**Mitigation:** Use modern diagnostic criteria")
}

func TestParseDetailedFormat(t *testing.T) {
	res := Parse(detailedBlock)
	require.Len(t, res.Records, 1)

	r := res.Records[0]
	assert.Equal(t, 4, r.SequenceID)
	assert.Equal(t, map[string]string{
		types.SectionQuestion:                "How does transient spinal venous congestion contribute to episodic symptoms?",
		types.SectionSpark:                   "Clinical observation: patients present with transient paralysis.",
		types.SectionAlternativeExplanations: "Symptoms are functional.\nArterial rather than venous phenomena.",
	}, r.Detailed)

	_, ok := r.Section(types.SectionGap)
	assert.False(t, ok, "missing sections are absent, not empty")
	assert.Zero(t, r.Compact.Present())
}

func TestParseRejections(t *testing.T) {
	sep := "\n" + strings.Repeat("=", 30) + "\n"
	text := strings.Join([]string{
		"**H1: First**\n*Claim:* one",
		"**H2: Nothing Here**\nJust prose without any known labels.",
		"**H1: Repeated**\n*Claim:* again",
		"no header",
		"**H3: Third**\n*Mechanism:* three",
	}, sep)

	res := Parse(text)

	assert.Equal(t, types.ParseDiagnostics{BlocksSeen: 5, HeaderRejected: 2, EmptyRejected: 1, Assembled: 2}, res.Diagnostics)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Records[0].SequenceID)
	assert.Equal(t, "First", res.Records[0].DomainTitle)
	assert.Equal(t, 3, res.Records[1].SequenceID)
}

func TestParsePreservesOrder(t *testing.T) {
	sep := "\n" + strings.Repeat("=", 20) + "\n"
	text := "**H5: E**\n*Claim:* e" + sep + "**H2: B**\n*Claim:* b" + sep + "**H9: I**\n*Claim:* i"

	res := Parse(text)

	var ids []int
	for _, r := range res.Records {
		ids = append(ids, r.SequenceID)
	}
	assert.Equal(t, []int{5, 2, 9}, ids)
}

func TestParseIdempotent(t *testing.T) {
	text := fullCompactBlock + "\n" + strings.Repeat("=", 40) + "\n" + detailedBlock + "\n" + strings.Repeat("=", 40) + "\n" + templateBlock

	first := Parse(text)
	second := Parse(text)

	assert.Empty(t, cmp.Diff(first, second))

	var a, b bytes.Buffer
	require.NoError(t, Render(&a, first))
	require.NoError(t, Render(&b, second))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestParseNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t",
		"\n" + strings.Repeat("=", 50) + "\n" + strings.Repeat("=", 50) + "\n",
		"**H1:**",
		"**H1: Title** *Claim:*",
		"💊🩺 **H２: 全角** Claim: 静脉",
		"\x00\xff\xfe **H3: Bad bytes** *Mechanism:* \xc3\x28",
		strings.Repeat("*", 500) + strings.Repeat("Claim:", 200),
		strings.Repeat("**H1: x**\n", 100),
	}

	for _, in := range inputs {
		var res Result
		require.NotPanics(t, func() { res = Parse(in) })
		assert.True(t, res.Diagnostics.Accounted(), "input %q: %+v", in, res.Diagnostics)
	}
}

func TestParseStrictEmpty(t *testing.T) {
	p := NewParser(nil)

	_, err := p.ParseStrict(" \n ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	res, err := p.ParseStrict("no hypotheses here")
	require.NoError(t, err)
	assert.Equal(t, types.NoHypothesesWarning, res.Warning())
}

func TestParseLogsWarningWhenEmpty(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewParser(zap.New(core))

	p.Parse("**H1: Header only**\nnothing labeled\n" + strings.Repeat("=", 20) + "\nstray text")

	assert.Equal(t, 2, logs.FilterMessage("block rejected").Len())
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warn, 1)
	assert.Equal(t, types.NoHypothesesWarning, warn[0].Message)
}

func TestTopRanked(t *testing.T) {
	records := []types.HypothesisRecord{{SequenceID: 1}, {SequenceID: 2}, {SequenceID: 3}, {SequenceID: 4}}
	ranking := "## Ranking\n1. **H3: Renal** Score 720\n2. **H-1: Vascular** Score 640\n3. H9: Unknown\n4. **H3: Repeat**"

	assert.Equal(t, []int{3, 1, 9}, RankOrder(ranking))

	got := TopRanked(records, ranking, 3)
	var ids []int
	for _, r := range got {
		ids = append(ids, r.SequenceID)
	}
	assert.Equal(t, []int{3, 1, 2}, ids)

	assert.Nil(t, TopRanked(records, ranking, 0))
	assert.Len(t, TopRanked(records, "", 10), 4)
}
