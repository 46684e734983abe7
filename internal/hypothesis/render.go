// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hypothesis

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/chronos/pkg/types"
)

// sectionTitles gives the display label of each detailed section.
var sectionTitles = map[string]string{
	types.SectionQuestion:                     "The Question",
	types.SectionSpark:                        "The Spark",
	types.SectionHistoricalModernBridge:       "The Historical-Modern Bridge",
	types.SectionGap:                          "The Gap",
	types.SectionInnovation:                   "The Innovation",
	types.SectionInterdisciplinaryConnections: "Interdisciplinary Connections",
	types.SectionQuestionType:                 "Question Type",
	types.SectionPotentialApproaches:          "Potential Approaches",
	types.SectionAlternativeExplanations:      "Alternative Explanations",
	types.SectionEvidenceLandscape:            "Evidence Landscape",
	types.SectionWhyThisMatters:               "Why This Matters",
	types.SectionFeasibilityAssessment:        "Feasibility Assessment",
	types.SectionPossibleTraps:                "Possible Traps",
}

// Render writes a plain-text rendering of the assembled records. Absent
// fields are omitted; present-but-empty fields are shown as "(empty)".
func Render(w io.Writer, res Result) error {
	d := res.Diagnostics
	if _, err := fmt.Fprintf(w, "Parsed %d hypotheses (%d blocks, %d without header, %d without fields)\n",
		d.Assembled, d.BlocksSeen, d.HeaderRejected, d.EmptyRejected); err != nil {
		return err
	}
	if d.Empty() {
		_, err := fmt.Fprintf(w, "WARNING: %s\n", types.NoHypothesesWarning)
		return err
	}

	for _, r := range res.Records {
		var b strings.Builder
		fmt.Fprintf(&b, "\n%s\nH%d: %s\n%s\n", strings.Repeat("=", 60), r.SequenceID, r.DomainTitle, strings.Repeat("=", 60))

		c := r.Compact
		for _, f := range []struct {
			label string
			v     *string
		}{
			{"Claim", c.Claim},
			{"Historical Source", c.HistoricalSource},
			{"Modern Relevance", c.ModernRelevance},
			{"Variables", c.Variables},
			{"Mechanism", c.Mechanism},
			{"Testability", c.Testability},
			{"Innovation", c.Innovation},
		} {
			if f.v != nil {
				writeField(&b, f.label, *f.v)
			}
		}
		for _, key := range types.DetailedSections {
			if v, ok := r.Detailed[key]; ok {
				writeField(&b, sectionTitles[key], v)
			}
		}

		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeField(b *strings.Builder, label, v string) {
	if v == "" {
		v = "(empty)"
	}
	fmt.Fprintf(b, "\n%s:\n%s\n", label, v)
}
