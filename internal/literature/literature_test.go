// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package literature

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chronos/internal/httputil"
	"github.com/pdiddy/chronos/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

const sampleWorks = `{
  "meta": {"count": 2, "per_page": 5, "page": 1},
  "results": [
    {
      "id": "https://openalex.org/W100",
      "title": "Venous congestion in spinal cord injury",
      "doi": "https://doi.org/10.1000/scic.1",
      "publication_year": 2019,
      "cited_by_count": 42,
      "authorships": [
        {"author": {"display_name": "A. Author"}},
        {"author": {"display_name": ""}},
        {"author": {"display_name": "B. Author"}}
      ],
      "abstract_inverted_index": {"Spinal": [0], "venous": [1], "congestion": [2], "matters": [3]}
    },
    {
      "id": "https://openalex.org/W200",
      "title": "Cold therapy revisited",
      "doi": "",
      "publication_year": 2021,
      "cited_by_count": 3,
      "authorships": [],
      "abstract_inverted_index": {}
    }
  ]
}`

func withServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	t.Cleanup(func() { openAlexSearchBase = old })
	return ts
}

func TestOpenAlexSearch(t *testing.T) {
	var gotQuery, gotUA string
	ts := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleWorks)
	})

	o := &OpenAlex{Client: ts.Client(), Email: "lab@example.org", UserAgent: "chronos/test"}
	hits, err := o.Search(context.Background(), "spinal venous congestion", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Contains(t, gotQuery, "search=spinal+venous+congestion")
	assert.Contains(t, gotQuery, "per_page=5")
	assert.Contains(t, gotQuery, "mailto=lab%40example.org")
	assert.Equal(t, "chronos/test", gotUA)

	first := hits[0]
	assert.Equal(t, "https://openalex.org/W100", first.ID)
	assert.Equal(t, "10.1000/scic.1", first.DOI)
	assert.Equal(t, 2019, first.Year)
	assert.Equal(t, 42, first.CitedByCount)
	assert.Equal(t, []string{"A. Author", "B. Author"}, first.Authors)
	assert.Equal(t, "Spinal venous congestion matters", first.AbstractSnippet)
	assert.InDelta(t, 1.0, first.RelevanceScore, 1e-9)

	second := hits[1]
	assert.Empty(t, second.DOI)
	assert.Empty(t, second.AbstractSnippet)
	assert.InDelta(t, 0.1, second.RelevanceScore, 1e-9)
}

func TestOpenAlexSearchCapsPerPage(t *testing.T) {
	var gotQuery string
	ts := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"results": []}`)
	})

	hits, err := (&OpenAlex{Client: ts.Client()}).Search(context.Background(), "q", 500)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Contains(t, gotQuery, "per_page=50")
	assert.NotContains(t, gotQuery, "mailto")
}

func TestOpenAlexSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		query   string
		wantErr string
	}{
		{"empty query", http.StatusOK, `{}`, "  ", "empty OpenAlex query"},
		{"server error", http.StatusInternalServerError, "boom", "q", "OpenAlex returned 500"},
		{"bad json", http.StatusOK, "{not json", "q", "parsing OpenAlex response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := (&OpenAlex{Client: ts.Client()}).Search(context.Background(), tt.query, 1)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOpenAlexSearchRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	ts := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleWorks)
	})

	hits, err := (&OpenAlex{Client: ts.Client()}).Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewOpenAlexEmailFallback(t *testing.T) {
	cfg := types.DefaultPipelineConfig().Literature
	o := NewOpenAlex(cfg, map[string]string{"openalex-email": "secret@example.org"})
	assert.Equal(t, "secret@example.org", o.Email)
	assert.Equal(t, "chronos/0.1", o.UserAgent)

	cfg.Email = "config@example.org"
	assert.Equal(t, "config@example.org", NewOpenAlex(cfg, nil).Email)
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil", nil, ""},
		{"single", map[string][]int{"hello": {0}}, "hello"},
		{"repeated word", map[string][]int{"the": {0, 3}, "cord": {1}, "and": {2}, "root": {4}}, "the cord and the root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconstructAbstract(tt.index))
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "one two...", snippet("one two three", 9))
	assert.Equal(t, "éééé...", snippet("éééééé", 4))
}

func strp(s string) *string { return &s }

func TestQuery(t *testing.T) {
	long := strings.Repeat("word ", 40)
	tests := []struct {
		name string
		rec  types.HypothesisRecord
		want string
	}{
		{"claim preferred", types.HypothesisRecord{DomainTitle: "Title", Compact: types.CompactSummary{Claim: strp("**Cold** reduces  swelling")}}, "Cold reduces swelling"},
		{"empty claim falls back to title", types.HypothesisRecord{DomainTitle: "Spinal Congestion", Compact: types.CompactSummary{Claim: strp("  ")}}, "Spinal Congestion"},
		{"absent claim falls back to title", types.HypothesisRecord{DomainTitle: "Spinal Congestion"}, "Spinal Congestion"},
		{"nothing", types.HypothesisRecord{}, ""},
		{"long claim truncated", types.HypothesisRecord{Compact: types.CompactSummary{Claim: strp(long)}}, strings.TrimSpace(strings.Repeat("word ", maxQueryWords))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Query(tt.rec))
		})
	}
}

type fakeSearcher struct {
	hits    map[string][]types.LiteratureHit
	fail    map[string]bool
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]types.LiteratureHit, error) {
	f.queries = append(f.queries, query)
	if f.fail[query] {
		return nil, errors.New("OpenAlex returned 503")
	}
	return f.hits[query], nil
}

func TestVerifyTop(t *testing.T) {
	records := []types.HypothesisRecord{
		{SequenceID: 3, DomainTitle: "Known"},
		{SequenceID: 1, DomainTitle: "Open"},
		{SequenceID: 2, DomainTitle: "Flaky"},
		{SequenceID: 4, DomainTitle: "Ignored"},
	}
	s := &fakeSearcher{
		hits: map[string][]types.LiteratureHit{"Known": {{ID: "W1", Title: "Prior work"}}},
		fail: map[string]bool{"Flaky": true},
	}
	v := &Verifier{Search: s, MaxResults: 3}

	got := v.VerifyTop(context.Background(), records, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Known", "Open", "Flaky"}, s.queries)

	assert.Equal(t, 3, got[0].SequenceID)
	assert.False(t, got[0].Novel)
	assert.Len(t, got[0].Hits, 1)

	assert.Equal(t, 1, got[1].SequenceID)
	assert.True(t, got[1].Novel)

	assert.Equal(t, 2, got[2].SequenceID)
	assert.False(t, got[2].Novel)
	assert.Contains(t, got[2].Error, "503")
}

func TestVerifyTopSkipsUnqueryable(t *testing.T) {
	s := &fakeSearcher{}
	got := (&Verifier{Search: s}).VerifyTop(context.Background(), []types.HypothesisRecord{{SequenceID: 9}}, 0)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].Error)
	assert.Empty(t, s.queries)
}

func TestWriteVerification(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "literature")
	in := []types.Verification{{SequenceID: 1, Query: "q", Novel: true}}

	path, err := WriteVerification(dir, "20260102_150405", in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "verification_20260102_150405.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []types.Verification
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in[0].SequenceID, out[0].SequenceID)
	assert.True(t, out[0].Novel)
}
