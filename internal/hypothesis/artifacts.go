// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hypothesis

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chronos/pkg/types"
)

//go:embed hypotheses.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("hypotheses.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("loading hypotheses schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("hypotheses.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compiling hypotheses schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// MarshalJSON encodes res and validates the encoding against the
// hypotheses schema.
func MarshalJSON(res Result) ([]byte, error) {
	if res.Records == nil {
		res.Records = []types.HypothesisRecord{}
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateJSON checks an encoded Result against the hypotheses schema.
func ValidateJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding hypotheses JSON: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("hypotheses JSON does not match schema: %w", err)
	}
	return nil
}

// Artifacts names the files written for one parse.
type Artifacts struct {
	Raw    string `json:"raw" yaml:"raw"`
	Parsed string `json:"parsed" yaml:"parsed"`
	JSON   string `json:"json" yaml:"json"`
	YAML   string `json:"yaml" yaml:"yaml"`
}

// WriteArtifacts persists the raw model output, a text rendering of the
// parsed records, and the structured result as JSON and YAML under dir.
// stamp distinguishes invocations (e.g. "20260102_150405").
func WriteArtifacts(dir, stamp, raw string, res Result) (Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("creating output directory: %w", err)
	}

	a := Artifacts{
		Raw:    filepath.Join(dir, "research_questions_"+stamp+".txt"),
		Parsed: filepath.Join(dir, "parsed_hypotheses_"+stamp+".txt"),
		JSON:   filepath.Join(dir, "hypotheses_"+stamp+".json"),
		YAML:   filepath.Join(dir, "hypotheses_"+stamp+".yaml"),
	}

	if err := os.WriteFile(a.Raw, []byte(raw), 0o644); err != nil {
		return a, fmt.Errorf("writing raw output: %w", err)
	}

	var rendered bytes.Buffer
	if err := Render(&rendered, res); err != nil {
		return a, fmt.Errorf("rendering hypotheses: %w", err)
	}
	if err := os.WriteFile(a.Parsed, rendered.Bytes(), 0o644); err != nil {
		return a, fmt.Errorf("writing parsed hypotheses: %w", err)
	}

	data, err := MarshalJSON(res)
	if err != nil {
		return a, err
	}
	if err := os.WriteFile(a.JSON, data, 0o644); err != nil {
		return a, fmt.Errorf("writing hypotheses JSON: %w", err)
	}

	y, err := yaml.Marshal(res)
	if err != nil {
		return a, fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := os.WriteFile(a.YAML, y, 0o644); err != nil {
		return a, fmt.Errorf("writing hypotheses YAML: %w", err)
	}

	return a, nil
}

// ReadYAML loads a Result previously written by WriteArtifacts.
func ReadYAML(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var res Result
	if err := yaml.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return res, nil
}
