// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the CHRONOS pipeline for one document: text
// extraction, the four phases, and the optional literature check. All
// per-run state lives in a RunContext passed explicitly through each step.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/chronos/internal/graph"
	"github.com/pdiddy/chronos/internal/phases"
	"github.com/pdiddy/chronos/pkg/types"
)

// Result directory entries.
const (
	ExtractedTextFile = "extracted_text.txt"
	ResultFile        = "run_result.yaml"
	GraphDir          = "graph"
	LiteratureDir     = "literature"
)

const maxIDStem = 30

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// RunContext holds everything one run needs. It is created per request and
// never shared between runs.
type RunContext struct {
	ID        string
	InputPath string

	// Filename is the document name shown to users.
	Filename string

	// ResultDir holds every artifact of the run.
	ResultDir string

	// GraphPath is the run's HeritageNet database.
	GraphPath string

	Config types.PipelineConfig
	Logger *zap.Logger
	Clock  func() time.Time
}

// NewRunContext assigns a run id for inputPath and creates the result
// directory under cfg.ResultsDir. The id is derived from name, or from the
// base name of inputPath when name is empty. A nil logger or clock gets a
// default.
func NewRunContext(inputPath, name string, cfg types.PipelineConfig, logger *zap.Logger, clock func() time.Time) (*RunContext, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = types.DefaultPipelineConfig().ResultsDir
	}

	filename := name
	if filename == "" {
		filename = filepath.Base(inputPath)
	}
	id := RunID(filename, clock(), uuid.NewString())
	dir := filepath.Join(cfg.ResultsDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating result directory: %w", err)
	}

	return &RunContext{
		ID:        id,
		InputPath: inputPath,
		Filename:  filename,
		ResultDir: dir,
		GraphPath: filepath.Join(dir, GraphDir, graph.DBFile),
		Config:    cfg,
		Logger:    logger.With(zap.String("run", id)),
		Clock:     clock,
	}, nil
}

// RunID builds "<stem>_<timestamp>_<suffix>" where stem is the file name
// without extension, non-alphanumerics replaced by underscores, cut to 30
// characters, and suffix is the first 8 characters of nonce.
func RunID(filename string, at time.Time, nonce string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	stem = unsafeChars.ReplaceAllString(stem, "_")
	if len(stem) > maxIDStem {
		stem = stem[:maxIDStem]
	}
	if stem == "" {
		stem = "document"
	}
	nonce = strings.ReplaceAll(nonce, "-", "")
	if len(nonce) > 8 {
		nonce = nonce[:8]
	}
	id := stem + "_" + at.Format(phases.StampLayout)
	if nonce != "" {
		id += "_" + nonce
	}
	return id
}

// PhaseDir returns the directory of one phase's artifacts.
func (rc *RunContext) PhaseDir(name string) string {
	return filepath.Join(rc.ResultDir, name)
}
