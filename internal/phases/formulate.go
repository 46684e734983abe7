// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package phases

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/chronos/internal/generate"
	"github.com/pdiddy/chronos/internal/hypothesis"
	"github.com/pdiddy/chronos/pkg/types"
)

// FormulateResult is the outcome of Phase 4.
type FormulateResult struct {
	// Questions is the raw question output.
	Questions string

	// Parsed holds the records and diagnostics from the question output.
	Parsed    hypothesis.Result
	Artifacts hypothesis.Artifacts

	Ranking     string
	RankingFile string

	// Top is the TopN records in ranking order.
	Top []types.HypothesisRecord

	Summary     string
	SummaryFile string

	// Errors maps a failed non-critical step ("ranking", "summary") to
	// its error.
	Errors map[string]error
}

// Formulate runs Phase 4: question generation, parsing, ranking, and an
// executive summary. Only a question generation or artifact write failure
// is returned as an error; ranking and summary failures are recorded.
func (r *Runner) Formulate(ctx context.Context, synthesis string) (FormulateResult, error) {
	res := FormulateResult{Errors: map[string]error{}}

	tmpl := "questions_h"
	if r.cfg.Format == types.FormatDetailed {
		tmpl = "questions_detailed"
	}
	prompt, err := render(tmpl, questionData{
		Synthesis:    synthesis,
		NumQuestions: r.cfg.NumQuestions,
		Rule:         questionRule,
	})
	if err != nil {
		return res, err
	}

	step := Phase4Dir + ".research_questions"
	r.logger.Info("phase step started", zap.String("step", step), zap.Int("num_questions", r.cfg.NumQuestions))
	res.Questions, err = r.gen.Generate(ctx, generate.Request{
		Step:        step,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: r.cfg.FormulateTemperature,
	})
	if err != nil {
		return res, fmt.Errorf("phase 4 questions: %w", err)
	}

	res.Parsed = hypothesis.NewParser(r.logger).Parse(res.Questions)
	res.Artifacts, err = hypothesis.WriteArtifacts(filepath.Join(r.dir, Phase4Dir), r.stamp(), res.Questions, res.Parsed)
	if err != nil {
		return res, fmt.Errorf("phase 4 artifacts: %w", err)
	}
	r.logger.Info("hypotheses parsed",
		zap.Int("blocks", res.Parsed.Diagnostics.BlocksSeen),
		zap.Int("assembled", res.Parsed.Diagnostics.Assembled),
		zap.String("file", res.Artifacts.JSON))

	rankPrompt, err := render("ranking", rankingData{Questions: res.Questions, TopN: r.cfg.TopN})
	if err != nil {
		return res, err
	}
	res.Ranking, res.RankingFile, err = r.step(ctx, Phase4Dir, "question_ranking", rankPrompt, r.cfg.FormulateTemperature)
	if err != nil {
		res.Errors["ranking"] = err
		res.Top = hypothesis.TopRanked(res.Parsed.Records, "", r.cfg.TopN)
		return res, nil
	}
	res.Top = hypothesis.TopRanked(res.Parsed.Records, res.Ranking, r.cfg.TopN)

	sumPrompt, err := render("executive_summary", rankingData{Questions: res.Questions, Ranking: res.Ranking})
	if err != nil {
		return res, err
	}
	res.Summary, res.SummaryFile, err = r.step(ctx, Phase4Dir, "executive_summary", sumPrompt, r.cfg.FormulateTemperature)
	if err != nil {
		res.Errors["summary"] = err
	}
	return res, nil
}
