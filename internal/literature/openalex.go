// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package literature checks generated hypotheses against modern published
// work. It searches OpenAlex for each hypothesis claim and records what was
// found; a hypothesis with no hits is flagged as possibly novel.
package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/chronos/internal/httputil"
	"github.com/pdiddy/chronos/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Tests point it
// at an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const (
	defaultMaxResults = 5
	maxPerPage        = 50
	snippetChars      = 300
)

// OpenAlex searches the OpenAlex works index.
type OpenAlex struct {
	Client *http.Client

	// Email is sent as the mailto parameter for polite pool access.
	Email string

	UserAgent  string
	MaxRetries int
}

// NewOpenAlex builds a client from cfg. The email falls back to the
// openalex-email secret when cfg leaves it empty.
func NewOpenAlex(cfg types.LiteratureConfig, secrets map[string]string) *OpenAlex {
	email := cfg.Email
	if email == "" {
		email = secrets["openalex-email"]
	}
	return &OpenAlex{
		Client:    &http.Client{Timeout: cfg.Timeout},
		Email:     email,
		UserAgent: cfg.UserAgent,
	}
}

// Search returns up to max works for query, most relevant first.
func (o *OpenAlex) Search(ctx context.Context, query string, max int) ([]types.LiteratureHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	if max <= 0 {
		max = defaultMaxResults
	}
	if max > maxPerPage {
		max = maxPerPage
	}

	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(max)},
		"page":     {"1"},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, o.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex request: %w", err)
	}
	if err := httputil.CheckResponse("OpenAlex", resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	total := len(oar.Results)
	hits := make([]types.LiteratureHit, 0, total)
	for i, work := range oar.Results {
		hit := types.LiteratureHit{
			ID:              work.ID,
			Title:           work.Title,
			Year:            work.PublicationYear,
			DOI:             strings.TrimPrefix(work.DOI, "https://doi.org/"),
			CitedByCount:    work.CitedByCount,
			AbstractSnippet: snippet(reconstructAbstract(work.AbstractInvertedIndex), snippetChars),
		}
		for _, a := range work.Authorships {
			if a.Author.DisplayName != "" {
				hit.Authors = append(hit.Authors, a.Author.DisplayName)
			}
		}

		// OpenAlex sorts by relevance; scores fall linearly from 1.0 to 0.1.
		if total > 1 {
			hit.RelevanceScore = 1.0 - float64(i)/float64(total-1)*0.9
		} else {
			hit.RelevanceScore = 1.0
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// reconstructAbstract turns an abstract_inverted_index (word to positions)
// back into running text.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// snippet shortens s to at most n runes, cutting at a word boundary and
// appending an ellipsis.
func snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := string([]rune(s)[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}
