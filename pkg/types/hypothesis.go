// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Detailed section keys. A record's Detailed map only ever contains these keys.
const (
	SectionQuestion                     = "the_question"
	SectionSpark                        = "the_spark"
	SectionHistoricalModernBridge       = "historical_modern_bridge"
	SectionGap                          = "the_gap"
	SectionInnovation                   = "the_innovation"
	SectionInterdisciplinaryConnections = "interdisciplinary_connections"
	SectionQuestionType                 = "question_type"
	SectionPotentialApproaches          = "potential_approaches"
	SectionAlternativeExplanations      = "alternative_explanations"
	SectionEvidenceLandscape            = "evidence_landscape"
	SectionWhyThisMatters               = "why_this_matters"
	SectionFeasibilityAssessment        = "feasibility_assessment"
	SectionPossibleTraps                = "possible_traps"
)

// DetailedSections lists the detailed section keys in display order.
var DetailedSections = []string{
	SectionQuestion,
	SectionSpark,
	SectionHistoricalModernBridge,
	SectionGap,
	SectionInnovation,
	SectionInterdisciplinaryConnections,
	SectionQuestionType,
	SectionPotentialApproaches,
	SectionAlternativeExplanations,
	SectionEvidenceLandscape,
	SectionWhyThisMatters,
	SectionFeasibilityAssessment,
	SectionPossibleTraps,
}

// CompactSummary is the short-form field set of a hypothesis. A nil field
// means the model output did not contain it; a pointer to "" means the
// label was present with no content.
type CompactSummary struct {
	Claim            *string `json:"claim" yaml:"claim"`
	HistoricalSource *string `json:"historical_source" yaml:"historical_source"`
	ModernRelevance  *string `json:"modern_relevance" yaml:"modern_relevance"`
	Variables        *string `json:"variables" yaml:"variables"`
	Mechanism        *string `json:"mechanism" yaml:"mechanism"`
	Testability      *string `json:"testability" yaml:"testability"`
	Innovation       *string `json:"innovation" yaml:"innovation"`
}

// Present returns the number of fields that are not absent.
func (c CompactSummary) Present() int {
	n := 0
	for _, f := range []*string{c.Claim, c.HistoricalSource, c.ModernRelevance, c.Variables, c.Mechanism, c.Testability, c.Innovation} {
		if f != nil {
			n++
		}
	}
	return n
}

// HypothesisRecord is one parsed research-question entry from Phase 4 output.
type HypothesisRecord struct {
	// SequenceID is the number from the block header ("H-3" and "H3" both give 3).
	SequenceID int `json:"sequence_id" yaml:"sequence_id"`

	// DomainTitle is the free-text label following the sequence id.
	DomainTitle string `json:"domain_title" yaml:"domain_title"`

	// Compact holds the short-form fields.
	Compact CompactSummary `json:"compact_summary" yaml:"compact_summary"`

	// Detailed maps section keys (see DetailedSections) to their text.
	// Sections not found in the source are absent from the map.
	Detailed map[string]string `json:"detailed_fields" yaml:"detailed_fields"`

	// TestabilityScore is the N from an "N/10" testability rating, 0 when
	// the rating is absent or unreadable.
	TestabilityScore int `json:"testability_score,omitempty" yaml:"testability_score,omitempty"`

	// InnovationLevel is High, Moderate, or Low when the innovation field
	// names one of them, otherwise empty.
	InnovationLevel string `json:"innovation_level,omitempty" yaml:"innovation_level,omitempty"`
}

// Section returns the detailed section text and whether it was present.
func (r HypothesisRecord) Section(key string) (string, bool) {
	v, ok := r.Detailed[key]
	return v, ok
}

// ParseDiagnostics summarises one parser invocation.
type ParseDiagnostics struct {
	// BlocksSeen is the number of non-blank candidate blocks.
	BlocksSeen int `json:"blocks_seen" yaml:"blocks_seen"`

	// HeaderRejected counts blocks dropped for lacking a usable header.
	HeaderRejected int `json:"header_rejected" yaml:"header_rejected"`

	// EmptyRejected counts blocks with a header but no extractable fields.
	EmptyRejected int `json:"empty_rejected" yaml:"empty_rejected"`

	// Assembled counts records in the output.
	Assembled int `json:"assembled" yaml:"assembled"`
}

// Accounted reports whether every candidate block was either rejected or assembled.
func (d ParseDiagnostics) Accounted() bool {
	return d.HeaderRejected+d.EmptyRejected+d.Assembled == d.BlocksSeen
}

// Empty reports whether no records were assembled.
func (d ParseDiagnostics) Empty() bool {
	return d.Assembled == 0
}

// NoHypothesesWarning is surfaced to users when a parse assembled nothing.
const NoHypothesesWarning = "no hypotheses were extracted from the model output"
