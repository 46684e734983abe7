// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunState is the lifecycle state of one pipeline run.
type RunState string

const (
	RunQueued     RunState = "queued"
	RunProcessing RunState = "processing"
	RunComplete   RunState = "complete"
	RunError      RunState = "error"
)

// Phase names the pipeline step a run is in.
type Phase string

const (
	PhaseUpload     Phase = "upload"
	PhaseOCR        Phase = "ocr"
	PhaseBrainstorm Phase = "phase1"
	PhaseContext    Phase = "phase2"
	PhaseDistill    Phase = "phase3"
	PhaseFormulate  Phase = "phase4"
	PhaseLiterature Phase = "literature"
	PhaseDone       Phase = "complete"
)

// PhaseProgress is the percentage reported once a phase starts.
var PhaseProgress = map[Phase]int{
	PhaseUpload:     10,
	PhaseOCR:        15,
	PhaseBrainstorm: 30,
	PhaseContext:    50,
	PhaseDistill:    70,
	PhaseFormulate:  85,
	PhaseLiterature: 95,
	PhaseDone:       100,
}

// RunStatus is the externally visible state of a run.
type RunStatus struct {
	ID        string    `json:"unique_id" yaml:"unique_id"`
	Filename  string    `json:"filename" yaml:"filename"`
	State     RunState  `json:"status" yaml:"status"`
	Phase     Phase     `json:"phase" yaml:"phase"`
	Progress  int       `json:"progress" yaml:"progress"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	// HypothesesCount and Warning are set when the run completes.
	HypothesesCount int    `json:"hypotheses_count" yaml:"hypotheses_count"`
	Warning         string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// RunResult is what a completed run produced.
type RunResult struct {
	Status       RunStatus          `json:"status" yaml:"status"`
	Hypotheses   []HypothesisRecord `json:"hypotheses" yaml:"hypotheses"`
	Diagnostics  ParseDiagnostics   `json:"diagnostics" yaml:"diagnostics"`
	Top          []HypothesisRecord `json:"top_ranked,omitempty" yaml:"top_ranked,omitempty"`
	Summary      string             `json:"executive_summary,omitempty" yaml:"executive_summary,omitempty"`
	Verification []Verification     `json:"verification,omitempty" yaml:"verification,omitempty"`
	Artifacts    map[string]string  `json:"artifacts" yaml:"artifacts"`
	StepErrors   map[string]string  `json:"step_errors,omitempty" yaml:"step_errors,omitempty"`
}
