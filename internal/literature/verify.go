// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package literature

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chronos/pkg/types"
)

// maxQueryWords bounds the search text taken from a claim.
const maxQueryWords = 25

// Searcher finds works for a free-text query. *OpenAlex satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]types.LiteratureHit, error)
}

// Verifier looks up modern literature for ranked hypotheses.
type Verifier struct {
	Search     Searcher
	MaxResults int
	Logger     *zap.Logger
}

// VerifyTop searches for the first n records. A failed search is recorded
// on that record's Verification and does not stop the others.
func (v *Verifier) VerifyTop(ctx context.Context, records []types.HypothesisRecord, n int) []types.Verification {
	log := v.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if n > 0 && n < len(records) {
		records = records[:n]
	}

	out := make([]types.Verification, 0, len(records))
	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		vr := types.Verification{SequenceID: rec.SequenceID, Query: Query(rec)}
		if vr.Query == "" {
			vr.Error = "hypothesis has neither claim nor title"
			out = append(out, vr)
			continue
		}

		hits, err := v.Search.Search(ctx, vr.Query, v.MaxResults)
		if err != nil {
			log.Warn("literature search failed", zap.Int("hypothesis", rec.SequenceID), zap.Error(err))
			vr.Error = err.Error()
			out = append(out, vr)
			continue
		}
		vr.Hits = hits
		vr.Novel = len(hits) == 0
		log.Info("literature checked",
			zap.Int("hypothesis", rec.SequenceID),
			zap.Int("hits", len(hits)),
			zap.Bool("novel", vr.Novel))
		out = append(out, vr)
	}
	return out
}

// Query returns the search text for rec: its claim statement, or its title
// when the claim is absent or empty. Markdown emphasis is removed.
func Query(rec types.HypothesisRecord) string {
	text := rec.DomainTitle
	if c := rec.Compact.Claim; c != nil && strings.TrimSpace(*c) != "" {
		text = *c
	}
	text = strings.NewReplacer("**", "", "__", "", "*", "", "`", "").Replace(text)
	words := strings.Fields(text)
	if len(words) > maxQueryWords {
		words = words[:maxQueryWords]
	}
	return strings.Join(words, " ")
}

// WriteVerification writes results to dir/verification_<stamp>.yaml and
// returns the path.
func WriteVerification(dir, stamp string, results []types.Verification) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshaling verification: %w", err)
	}
	path := filepath.Join(dir, "verification_"+stamp+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing verification: %w", err)
	}
	return path, nil
}
