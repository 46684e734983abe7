// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package phases

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/chronos/internal/graph"
)

// ContextResult is the outcome of Phase 2.
type ContextResult struct {
	// Summary is the Phase 2 analysis fed to Phase 3.
	Summary     string
	SummaryFile string

	// Graph holds the parsed extraction. It is empty when the model call
	// failed.
	Graph     graph.Elements
	GraphFile string
	Stored    graph.AddSummary

	// GraphErr records a failed extraction or store. It does not fail
	// the phase.
	GraphErr error
}

// BuildContext runs Phase 2: a knowledge-graph extraction over the
// brainstorm and source text, then the Phase 2 summary. Only a summary
// failure is returned as an error.
func (r *Runner) BuildContext(ctx context.Context, brainstorm, text string) (ContextResult, error) {
	var res ContextResult

	res.Graph, res.GraphFile, res.Stored, res.GraphErr = r.extractGraph(ctx, brainstorm, text)
	if res.GraphErr != nil {
		r.logger.Warn("knowledge graph extraction failed", zap.Error(res.GraphErr))
	}

	prompt, err := render("context_summary", sourceData{Brainstorm: brainstorm})
	if err != nil {
		return res, err
	}
	res.Summary, res.SummaryFile, err = r.step(ctx, Phase2Dir, "phase2_summary", prompt, r.cfg.ContextTemperature)
	if err != nil {
		return res, fmt.Errorf("phase 2 summary: %w", err)
	}
	return res, nil
}

func (r *Runner) extractGraph(ctx context.Context, brainstorm, text string) (graph.Elements, string, graph.AddSummary, error) {
	src, cut := truncate(text, r.cfg.MaxContextChars)
	prompt, err := render("graph_extraction", sourceData{Text: src, Brainstorm: brainstorm, Truncated: cut})
	if err != nil {
		return graph.Elements{}, "", graph.AddSummary{}, err
	}

	out, path, err := r.step(ctx, Phase2Dir, "phase2_graph_extraction", prompt, r.cfg.ContextTemperature)
	if err != nil {
		return graph.Elements{}, "", graph.AddSummary{}, fmt.Errorf("phase 2 graph extraction: %w", err)
	}

	elems := graph.ParseElements(out)
	r.logger.Info("knowledge graph parsed",
		zap.Int("nodes", len(elems.Nodes)),
		zap.Int("relationships", len(elems.Relationships)),
		zap.Int("unknown_types", elems.UnknownTypes),
		zap.Int("dropped", elems.Dropped))

	if r.graph == nil || elems.Empty() {
		return elems, path, graph.AddSummary{}, nil
	}
	stored, err := r.graph.AddElements(ctx, elems)
	if err != nil {
		return elems, path, graph.AddSummary{}, fmt.Errorf("storing knowledge graph: %w", err)
	}
	return elems, path, stored, nil
}
