// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package phases

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Lens identifies one Phase 3 line of questioning.
type Lens string

const (
	LensModern     Lens = "lens_a_modern_extensions"
	LensHistorical Lens = "lens_b_historical_extensions"
	LensBridge     Lens = "lens_c_bridge_questions"
)

var lensTemplates = map[Lens]string{
	LensModern:     "lens_a",
	LensHistorical: "lens_b",
	LensBridge:     "lens_c",
}

// Lenses lists the lenses in presentation order.
var Lenses = []Lens{LensModern, LensHistorical, LensBridge}

// DistillResult is the outcome of Phase 3.
type DistillResult struct {
	Outputs map[Lens]string
	Files   map[Lens]string

	Synthesis     string
	SynthesisFile string

	// Errors maps a failed lens, or "synthesis", to its error.
	Errors map[string]error
}

// Distill runs Phase 3: the three lenses concurrently over the Phase 2
// summary, then a synthesis when every lens succeeded. It returns
// ErrSynthesisUnavailable, alongside the partial result, when there is no
// synthesis for Phase 4.
func (r *Runner) Distill(ctx context.Context, summary string) (DistillResult, error) {
	res := DistillResult{
		Outputs: make(map[Lens]string, len(Lenses)),
		Files:   make(map[Lens]string, len(Lenses)),
		Errors:  map[string]error{},
	}

	type lensOut struct {
		text, file string
		err        error
	}
	outs := make([]lensOut, len(Lenses))

	// Lens failures are recorded rather than returned so one failure does
	// not cancel the others.
	var g errgroup.Group
	for i, lens := range Lenses {
		g.Go(func() error {
			prompt, err := render(lensTemplates[lens], lensData{Summary: summary, MinSets: minLensSets})
			if err != nil {
				outs[i].err = err
				return nil
			}
			outs[i].text, outs[i].file, outs[i].err = r.step(ctx, Phase3Dir, string(lens), prompt, r.cfg.DistillTemperature)
			return nil
		})
	}
	g.Wait()

	for i, lens := range Lenses {
		if outs[i].err != nil {
			res.Errors[string(lens)] = outs[i].err
			continue
		}
		res.Outputs[lens] = outs[i].text
		res.Files[lens] = outs[i].file
	}

	if len(res.Errors) > 0 {
		r.logger.Warn("skipping synthesis, not all lenses completed", zap.Int("failed", len(res.Errors)))
		return res, fmt.Errorf("phase 3: %d of %d lenses failed: %w", len(res.Errors), len(Lenses), ErrSynthesisUnavailable)
	}

	prompt, err := render("synthesis", synthesisData{
		LensA: res.Outputs[LensModern],
		LensB: res.Outputs[LensHistorical],
		LensC: res.Outputs[LensBridge],
	})
	if err != nil {
		return res, err
	}
	res.Synthesis, res.SynthesisFile, err = r.step(ctx, Phase3Dir, "phase3_synthesis", prompt, r.cfg.DistillTemperature)
	if err != nil {
		res.Errors["synthesis"] = err
		return res, fmt.Errorf("phase 3 synthesis: %w: %w", ErrSynthesisUnavailable, err)
	}
	return res, nil
}
