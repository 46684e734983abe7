// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hypothesis

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/chronos/pkg/types"
)

// patternKind selects the surface syntax a rule matches.
type patternKind int

const (
	// labeled matches an emphasised label: "*Claim:*", "**Claim:**",
	// "**Claim**:" or a heading line "**The Spark**". The value runs to the
	// next emphasised known label or a blank line. A label and value
	// emphasised together, "**Testability Score: 8/10**", also counts; its
	// value ends at the closing marker.
	labeled patternKind = iota

	// prose matches a bare "Claim:" label outside any labeled value. The
	// value runs to the next known label of either kind, or a blank line.
	prose
)

func (k patternKind) String() string {
	if k == labeled {
		return "labeled"
	}
	return "prose"
}

// rule is one (kind, synonym) attempt for a field.
type rule struct {
	kind    patternKind
	synonym string
}

// fieldRules lists the rules for one field in priority order.
type fieldRules struct {
	key   string
	rules []rule
}

// labeledThenProse expands synonyms into rules: every labeled synonym is
// tried before any prose synonym.
func labeledThenProse(synonyms ...string) []rule {
	out := make([]rule, 0, 2*len(synonyms))
	for _, s := range synonyms {
		out = append(out, rule{labeled, s})
	}
	for _, s := range synonyms {
		out = append(out, rule{prose, s})
	}
	return out
}

// Compact summary keys.
const (
	compactClaim            = "claim"
	compactHistoricalSource = "historical_source"
	compactModernRelevance  = "modern_relevance"
	compactVariables        = "variables"
	compactMechanism        = "mechanism"
	compactTestability      = "testability"
	compactInnovation       = "innovation"
)

var compactTable = []fieldRules{
	{compactClaim, labeledThenProse("Claim Statement", "Claim")},
	{compactHistoricalSource, labeledThenProse("Historical Source", "Historical Sources")},
	{compactModernRelevance, labeledThenProse("Modern Relevance")},
	{compactVariables, labeledThenProse("Variables", "Key Variables")},
	{compactMechanism, labeledThenProse("Mechanism", "Proposed Mechanism")},
	{compactTestability, labeledThenProse("Testability Score", "Testability")},
	{compactInnovation, labeledThenProse("Innovation Potential", "Innovation")},
}

var detailedTable = []fieldRules{
	{types.SectionQuestion, labeledThenProse("The Question", "Question", "Research Question")},
	{types.SectionSpark, labeledThenProse("The Spark", "Spark")},
	{types.SectionHistoricalModernBridge, labeledThenProse(
		"The Historical-Modern Bridge", "Historical-Modern Bridge",
		"The Historical Modern Bridge", "Historical Modern Bridge")},
	{types.SectionGap, labeledThenProse("The Gap", "Gap")},
	{types.SectionInnovation, labeledThenProse("The Innovation")},
	{types.SectionInterdisciplinaryConnections, labeledThenProse("Interdisciplinary Connections")},
	{types.SectionQuestionType, labeledThenProse("Question Type")},
	{types.SectionPotentialApproaches, labeledThenProse("Potential Approaches")},
	{types.SectionAlternativeExplanations, labeledThenProse("Alternative Explanations to Consider", "Alternative Explanations")},
	{types.SectionEvidenceLandscape, labeledThenProse("Evidence Landscape")},
	{types.SectionWhyThisMatters, labeledThenProse("Why This Matters")},
	{types.SectionFeasibilityAssessment, labeledThenProse("Feasibility Assessment", "Feasibility")},
	{types.SectionPossibleTraps, labeledThenProse("Possible Traps", "Traps")},
}

var (
	labeledPattern *regexp.Regexp
	inlinePattern  *regexp.Regexp
	prosePattern   *regexp.Regexp
	blankLine      = regexp.MustCompile(`\n[ \t]*\r?\n`)
)

func init() {
	alt := labelAlternation(compactTable, detailedTable)
	labeledPattern = regexp.MustCompile(`(?im)\*{1,2}[ \t]*(?:\d{1,2}[.)][ \t]*)?(` + alt + `)[ \t]*` +
		`(?::[ \t]*\*{1,2}|\*{1,2}[ \t]*:|\*{1,2}[ \t]*\r?$)`)
	inlinePattern = regexp.MustCompile(`(?im)\*{1,2}[ \t]*(?:\d{1,2}[.)][ \t]*)?(` + alt + `)[ \t]*:[ \t]*` +
		`([^*\n]*[^*\s])[ \t]*\*{1,2}`)
	prosePattern = regexp.MustCompile(`(?im)(?:^|[^\w*])(` + alt + `)[ \t]*:`)
}

// labelAlternation joins every synonym into one alternation, longest first so
// "Claim Statement" wins over "Claim" at the same offset.
func labelAlternation(tables ...[]fieldRules) string {
	seen := map[string]bool{}
	var syns []string
	for _, table := range tables {
		for _, f := range table {
			for _, r := range f.rules {
				n := normalizeLabel(r.synonym)
				if !seen[n] {
					seen[n] = true
					syns = append(syns, r.synonym)
				}
			}
		}
	}
	slices.SortStableFunc(syns, func(a, b string) int { return cmp.Compare(len(b), len(a)) })

	parts := make([]string, len(syns))
	for i, s := range syns {
		parts[i] = strings.ReplaceAll(regexp.QuoteMeta(s), " ", `[ \t]+`)
	}
	return strings.Join(parts, "|")
}

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// occurrence is one known label found in a block.
type occurrence struct {
	start, end int
	kind       patternKind
	label      string

	// inline occurrences carry their value inside the match.
	inline bool
	value  string
}

// labelScan holds every known label found in a block body, ordered by offset.
type labelScan struct {
	body  string
	occ   []occurrence
	first map[rule]int
}

func scanLabels(body string) *labelScan {
	s := &labelScan{body: body, first: map[rule]int{}}

	for _, m := range inlinePattern.FindAllStringSubmatchIndex(body, -1) {
		s.occ = append(s.occ, occurrence{
			start: m[0], end: m[1], kind: labeled, label: normalizeLabel(body[m[2]:m[3]]),
			inline: true, value: body[m[4]:m[5]],
		})
	}
	nInline := len(s.occ)
	for _, m := range labeledPattern.FindAllStringSubmatchIndex(body, -1) {
		o := occurrence{start: m[0], end: m[1], kind: labeled, label: normalizeLabel(body[m[2]:m[3]])}
		if !overlapsAny(o, s.occ[:nInline]) {
			s.occ = append(s.occ, o)
		}
	}
	slices.SortFunc(s.occ, func(a, b occurrence) int { return cmp.Compare(a.start, b.start) })
	spans := s.valueSpans()

	for _, m := range prosePattern.FindAllStringSubmatchIndex(body, -1) {
		o := occurrence{start: m[2], end: m[1], kind: prose, label: normalizeLabel(body[m[2]:m[3]])}
		if !overlapsAny(o, s.occ) && !overlapsAny(o, spans) {
			s.occ = append(s.occ, o)
		}
	}
	slices.SortFunc(s.occ, func(a, b occurrence) int { return cmp.Compare(a.start, b.start) })

	for i, o := range s.occ {
		key := rule{o.kind, o.label}
		if _, ok := s.first[key]; !ok {
			s.first[key] = i
		}
	}
	return s
}

// valueSpans returns the body ranges taken by labeled values. Called
// before prose labels are added, so every occurrence is labeled.
func (s *labelScan) valueSpans() []occurrence {
	var spans []occurrence
	for i, o := range s.occ {
		if o.inline {
			continue
		}
		start, end := s.valueRange(i)
		spans = append(spans, occurrence{start: start, end: end})
	}
	return spans
}

func overlapsAny(o occurrence, others []occurrence) bool {
	for _, x := range others {
		if o.start < x.end && x.start < o.end {
			return true
		}
	}
	return false
}

// lookup evaluates rules in order and returns the first value found.
func (s *labelScan) lookup(rules []rule) (string, bool) {
	for _, r := range rules {
		if i, ok := s.first[rule{r.kind, normalizeLabel(r.synonym)}]; ok {
			return s.value(i), true
		}
	}
	return "", false
}

// value returns the trimmed text following occurrence i.
func (s *labelScan) value(i int) string {
	if o := s.occ[i]; o.inline {
		return strings.TrimSpace(o.value)
	}
	start, end := s.valueRange(i)
	return strings.TrimSpace(s.body[start:end])
}

// valueRange bounds the value of occurrence i: up to the next label it
// yields to, cut at the first blank line after the value begins.
func (s *labelScan) valueRange(i int) (int, int) {
	o := s.occ[i]
	limit := len(s.body)
	for _, next := range s.occ[i+1:] {
		if o.kind == labeled && next.kind != labeled {
			continue
		}
		limit = next.start
		break
	}

	v := s.body[o.end:limit]
	if k := strings.IndexFunc(v, notSpace); k >= 0 {
		if loc := blankLine.FindStringIndex(v[k:]); loc != nil {
			limit = o.end + k + loc[0]
		}
	}
	return o.end, limit
}

func notSpace(r rune) bool {
	return !strings.ContainsRune(" \t\r\n\f\v", r)
}

// extractFields reads both sub-schemas from a block body.
func extractFields(body string) (types.CompactSummary, map[string]string) {
	s := scanLabels(body)

	compact := map[string]*string{}
	for _, f := range compactTable {
		if v, ok := s.lookup(f.rules); ok {
			compact[f.key] = &v
		}
	}

	var detailed map[string]string
	for _, f := range detailedTable {
		if v, ok := s.lookup(f.rules); ok {
			if detailed == nil {
				detailed = map[string]string{}
			}
			detailed[f.key] = v
		}
	}

	return types.CompactSummary{
		Claim:            compact[compactClaim],
		HistoricalSource: compact[compactHistoricalSource],
		ModernRelevance:  compact[compactModernRelevance],
		Variables:        compact[compactVariables],
		Mechanism:        compact[compactMechanism],
		Testability:      compact[compactTestability],
		Innovation:       compact[compactInnovation],
	}, detailed
}

var (
	scoreOutOfTen = regexp.MustCompile(`(\d{1,2})\s*/\s*10\b`)
	leadingScore  = regexp.MustCompile(`^\W*(\d{1,2})\b`)
	innovationLvl = regexp.MustCompile(`(?i)\b(high|moderate|low)\b`)
)

// testabilityScore reads "8/10" or a leading "8" from a testability value.
func testabilityScore(v *string) int {
	if v == nil {
		return 0
	}
	m := scoreOutOfTen.FindStringSubmatch(*v)
	if m == nil {
		m = leadingScore.FindStringSubmatch(*v)
	}
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > 10 {
		return 0
	}
	return n
}

// innovationLevel names the first High/Moderate/Low in an innovation value.
func innovationLevel(v *string) string {
	if v == nil {
		return ""
	}
	m := innovationLvl.FindStringSubmatch(*v)
	if m == nil {
		return ""
	}
	lvl := strings.ToLower(m[1])
	return strings.ToUpper(lvl[:1]) + lvl[1:]
}
