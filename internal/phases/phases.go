// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package phases runs the four CHRONOS phases against a model: brainstorm,
// context building, distilling, and formulating research questions. Every
// step writes its raw output and a metadata file under the run directory.
package phases

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chronos/internal/generate"
	"github.com/pdiddy/chronos/internal/graph"
	"github.com/pdiddy/chronos/pkg/types"
)

// StampLayout formats the timestamp embedded in artifact file names.
const StampLayout = "20060102_150405"

// Phase output directories under the run directory.
const (
	Phase1Dir = "phase1"
	Phase2Dir = "phase2"
	Phase3Dir = "phase3"
	Phase4Dir = "phase4"
)

// ErrSynthesisUnavailable is returned by Distill when a lens or the
// synthesis failed; Phase 4 cannot run without the synthesis.
var ErrSynthesisUnavailable = errors.New("phase 3 synthesis unavailable")

// Generator produces text for one request. *generate.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (string, error)
}

// GraphSink receives the elements extracted in Phase 2.
type GraphSink interface {
	AddElements(ctx context.Context, e graph.Elements) (graph.AddSummary, error)
}

// Metadata describes one step's output file.
type Metadata struct {
	Phase        string `yaml:"phase" json:"phase"`
	Step         string `yaml:"step" json:"step"`
	Timestamp    string `yaml:"timestamp" json:"timestamp"`
	InputLength  int    `yaml:"input_length" json:"input_length"`
	OutputLength int    `yaml:"output_length" json:"output_length"`
	OutputFile   string `yaml:"output_file" json:"output_file"`
}

// Runner executes phase steps for one run.
type Runner struct {
	gen    Generator
	cfg    types.PhaseConfig
	dir    string
	graph  GraphSink
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithGraph stores Phase 2 graph elements in sink.
func WithGraph(sink GraphSink) Option {
	return func(r *Runner) { r.graph = sink }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the clock used for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner returns a Runner writing artifacts under dir. Zero fields in
// cfg take the defaults from types.DefaultPipelineConfig.
func NewRunner(gen Generator, cfg types.PhaseConfig, dir string, opts ...Option) *Runner {
	def := types.DefaultPipelineConfig().Phases
	if cfg.BrainstormTemperature == 0 {
		cfg.BrainstormTemperature = def.BrainstormTemperature
	}
	if cfg.ContextTemperature == 0 {
		cfg.ContextTemperature = def.ContextTemperature
	}
	if cfg.DistillTemperature == 0 {
		cfg.DistillTemperature = def.DistillTemperature
	}
	if cfg.FormulateTemperature == 0 {
		cfg.FormulateTemperature = def.FormulateTemperature
	}
	if cfg.NumQuestions <= 0 {
		cfg.NumQuestions = def.NumQuestions
	}
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.MaxContextChars == 0 {
		cfg.MaxContextChars = def.MaxContextChars
	}

	r := &Runner{
		gen:    gen,
		cfg:    cfg,
		dir:    dir,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Config returns the effective phase configuration.
func (r *Runner) Config() types.PhaseConfig {
	return r.cfg
}

// stamp returns the current artifact timestamp.
func (r *Runner) stamp() string {
	return r.now().Format(StampLayout)
}

// step runs one generation and saves its output. name is the artifact
// base name (e.g. "phase1_brainstorm").
func (r *Runner) step(ctx context.Context, phaseDir, name, prompt string, temp float32) (string, string, error) {
	step := phaseDir + "." + name
	r.logger.Info("phase step started", zap.String("step", step), zap.Int("prompt_chars", len(prompt)))

	out, err := r.gen.Generate(ctx, generate.Request{
		Step:        step,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: temp,
	})
	if err != nil {
		r.logger.Warn("phase step failed", zap.String("step", step), zap.Error(err))
		return "", "", err
	}

	path, err := r.save(phaseDir, name, len(prompt), out)
	if err != nil {
		return "", "", err
	}
	r.logger.Info("phase step complete",
		zap.String("step", step),
		zap.Int("output_chars", len(out)),
		zap.String("file", path))
	return out, path, nil
}

// save writes <dir>/<phaseDir>/<name>_<stamp>.txt and its metadata file.
func (r *Runner) save(phaseDir, name string, inputLen int, out string) (string, error) {
	dir := filepath.Join(r.dir, phaseDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	stamp := r.stamp()
	path := filepath.Join(dir, name+"_"+stamp+".txt")
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	meta := Metadata{
		Phase:        phaseDir,
		Step:         name,
		Timestamp:    stamp,
		InputLength:  inputLen,
		OutputLength: len(out),
		OutputFile:   path,
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}
	metaPath := filepath.Join(dir, name+"_metadata_"+stamp+".yaml")
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", metaPath, err)
	}
	return path, nil
}

// Brainstorm runs Phase 1 over the source text.
func (r *Runner) Brainstorm(ctx context.Context, text string) (string, error) {
	prompt, err := render("brainstorm", sourceData{Text: text})
	if err != nil {
		return "", err
	}
	out, _, err := r.step(ctx, Phase1Dir, "phase1_brainstorm", prompt, r.cfg.BrainstormTemperature)
	if err != nil {
		return "", fmt.Errorf("phase 1 brainstorm: %w", err)
	}
	return out, nil
}
