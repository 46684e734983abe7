// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chronos/internal/graph"
	"github.com/pdiddy/chronos/internal/literature"
	"github.com/pdiddy/chronos/internal/ocr"
	"github.com/pdiddy/chronos/internal/phases"
	"github.com/pdiddy/chronos/pkg/types"
)

// Warning shown when Phase 3 produced no synthesis and Phase 4 was skipped.
const synthesisWarning = "phase 3 synthesis unavailable; research questions were not generated"

// TextExtractor turns a document into text. *ocr.Extractor satisfies it.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// Verifier checks hypotheses against modern literature.
// *literature.Verifier satisfies it.
type Verifier interface {
	VerifyTop(ctx context.Context, records []types.HypothesisRecord, n int) []types.Verification
}

// Pipeline runs documents through extraction and the four phases.
type Pipeline struct {
	gen       phases.Generator
	extractor TextExtractor
	verifier  Verifier
	status    *StatusStore
	out       io.Writer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVerifier enables the literature check after Phase 4.
func WithVerifier(v Verifier) Option {
	return func(p *Pipeline) { p.verifier = v }
}

// WithProgress prints one line per finished step to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// New returns a Pipeline that reports run state to status.
func New(gen phases.Generator, extractor TextExtractor, status *StatusStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:       gen,
		extractor: extractor,
		status:    status,
		out:       io.Discard,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Status returns the store the pipeline reports to.
func (p *Pipeline) Status() *StatusStore {
	return p.status
}

// Run processes rc.InputPath. It registers the run with the status store
// if the caller has not, and marks it complete or failed before returning.
// A missing Phase 3 synthesis completes the run with a warning and no
// hypotheses.
func (p *Pipeline) Run(ctx context.Context, rc *RunContext) (types.RunResult, error) {
	if _, err := p.status.Get(rc.ID); err != nil {
		p.status.Start(rc.ID, rc.Filename)
	}

	res, err := p.run(ctx, rc)
	if err != nil {
		rc.Logger.Error("run failed", zap.Error(err))
		fmt.Fprintf(p.out, "failed  %s: %v\n", rc.ID, err)
		_ = p.status.Fail(rc.ID, err)
		return res, err
	}

	resultPath := filepath.Join(rc.ResultDir, ResultFile)
	res.Artifacts["result"] = resultPath
	if err := p.status.Complete(rc.ID, res); err != nil {
		return res, err
	}
	if st, err := p.status.Get(rc.ID); err == nil {
		res.Status = st
	}
	if err := writeResult(resultPath, res); err != nil {
		rc.Logger.Warn("writing run result failed", zap.Error(err))
	}

	rc.Logger.Info("run complete",
		zap.Int("hypotheses", len(res.Hypotheses)),
		zap.String("warning", res.Status.Warning))
	fmt.Fprintf(p.out, "complete %s (%d hypotheses)\n", rc.ID, len(res.Hypotheses))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, rc *RunContext) (types.RunResult, error) {
	res := types.RunResult{
		Artifacts:  map[string]string{},
		StepErrors: map[string]string{},
	}
	log := rc.Logger

	p.enter(rc, types.PhaseOCR)
	extracted, err := p.extractor.Extract(ctx, rc.InputPath)
	if err != nil {
		return res, fmt.Errorf("text extraction: %w", err)
	}
	textPath := filepath.Join(rc.ResultDir, ExtractedTextFile)
	if err := os.WriteFile(textPath, []byte(extracted.Text), 0o644); err != nil {
		return res, fmt.Errorf("writing extracted text: %w", err)
	}
	res.Artifacts["extracted_text"] = textPath
	fmt.Fprintf(p.out, "extracted %s (%d chars, %s)\n", rc.Filename, extracted.Chars, extracted.Method)

	opts := []phases.Option{phases.WithLogger(log), phases.WithClock(rc.Clock)}
	store, err := graph.NewStore(rc.GraphPath)
	if err != nil {
		log.Warn("graph store unavailable, continuing without it", zap.Error(err))
		res.StepErrors["graph_store"] = err.Error()
	} else {
		defer store.Close()
		opts = append(opts, phases.WithGraph(store))
		res.Artifacts["graph"] = rc.GraphPath
	}
	runner := phases.NewRunner(p.gen, rc.Config.Phases, rc.ResultDir, opts...)

	p.enter(rc, types.PhaseBrainstorm)
	brainstorm, err := runner.Brainstorm(ctx, extracted.Text)
	if err != nil {
		return res, err
	}

	p.enter(rc, types.PhaseContext)
	cres, err := runner.BuildContext(ctx, brainstorm, extracted.Text)
	if err != nil {
		return res, err
	}
	if cres.GraphErr != nil {
		res.StepErrors["graph_extraction"] = cres.GraphErr.Error()
	} else {
		fmt.Fprintf(p.out, "graph %s (%d nodes, %d relationships)\n",
			rc.ID, cres.Stored.NodesAdded, cres.Stored.RelationshipsAdded)
	}

	p.enter(rc, types.PhaseDistill)
	dres, err := runner.Distill(ctx, cres.Summary)
	for step, stepErr := range dres.Errors {
		res.StepErrors[step] = stepErr.Error()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if errors.Is(err, phases.ErrSynthesisUnavailable) {
		log.Warn("skipping phase 4", zap.Error(err))
		res.Status.Warning = synthesisWarning
		return res, nil
	}
	if err != nil {
		return res, err
	}

	p.enter(rc, types.PhaseFormulate)
	fres, err := runner.Formulate(ctx, dres.Synthesis)
	if err != nil {
		return res, err
	}
	for step, stepErr := range fres.Errors {
		res.StepErrors[step] = stepErr.Error()
	}
	res.Hypotheses = fres.Parsed.Records
	res.Diagnostics = fres.Parsed.Diagnostics
	res.Top = fres.Top
	res.Summary = fres.Summary
	res.Status.Warning = fres.Parsed.Warning()
	res.Artifacts["questions"] = fres.Artifacts.Raw
	res.Artifacts["hypotheses_json"] = fres.Artifacts.JSON
	res.Artifacts["hypotheses_yaml"] = fres.Artifacts.YAML
	if fres.RankingFile != "" {
		res.Artifacts["ranking"] = fres.RankingFile
	}
	if fres.SummaryFile != "" {
		res.Artifacts["executive_summary"] = fres.SummaryFile
	}
	fmt.Fprintf(p.out, "parsed %s (%d blocks, %d hypotheses)\n",
		rc.ID, res.Diagnostics.BlocksSeen, res.Diagnostics.Assembled)

	if p.verifier != nil && rc.Config.Literature.Enabled && len(res.Top) > 0 {
		p.enter(rc, types.PhaseLiterature)
		res.Verification = p.verifier.VerifyTop(ctx, res.Top, len(res.Top))
		path, err := literature.WriteVerification(rc.PhaseDir(LiteratureDir),
			rc.Clock().Format(phases.StampLayout), res.Verification)
		if err != nil {
			res.StepErrors["literature"] = err.Error()
		} else {
			res.Artifacts["verification"] = path
		}
	}
	return res, nil
}

// enter records that rc has started phase.
func (p *Pipeline) enter(rc *RunContext, phase types.Phase) {
	rc.Logger.Info("phase started", zap.String("phase", string(phase)),
		zap.Int("progress", types.PhaseProgress[phase]))
	if err := p.status.Update(rc.ID, phase); err != nil {
		rc.Logger.Warn("status update failed", zap.Error(err))
	}
}

func writeResult(path string, res types.RunResult) error {
	data, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling run result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run result: %w", err)
	}
	return nil
}
