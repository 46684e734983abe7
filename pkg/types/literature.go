// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// LiteratureHit is one modern work returned for a hypothesis query.
type LiteratureHit struct {
	ID              string   `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	Authors         []string `json:"authors" yaml:"authors"`
	Year            int      `json:"year,omitempty" yaml:"year,omitempty"`
	DOI             string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	CitedByCount    int      `json:"cited_by_count" yaml:"cited_by_count"`
	RelevanceScore  float64  `json:"relevance_score" yaml:"relevance_score"`
	AbstractSnippet string   `json:"abstract_snippet,omitempty" yaml:"abstract_snippet,omitempty"`
}

// Verification pairs a hypothesis with the literature found for it.
type Verification struct {
	SequenceID int             `json:"sequence_id" yaml:"sequence_id"`
	Query      string          `json:"query" yaml:"query"`
	Hits       []LiteratureHit `json:"hits" yaml:"hits"`

	// Novel is true when no work was found, a hint that the question is open.
	Novel bool   `json:"novel" yaml:"novel"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
