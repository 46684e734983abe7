// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chronos/internal/generate"
	"github.com/pdiddy/chronos/internal/literature"
	"github.com/pdiddy/chronos/internal/ocr"
	"github.com/pdiddy/chronos/internal/pipeline"
	"github.com/pdiddy/chronos/internal/secrets"
	"github.com/pdiddy/chronos/pkg/types"
)

// registerDefaults registers every key of the default configuration with
// viper so CHRONOS_* environment variables can override any of them
// (CHRONOS_AI_MODEL, CHRONOS_PHASES_TOP_N, ...).
func registerDefaults() error {
	data, err := yaml.Marshal(types.DefaultPipelineConfig())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decoding default config: %w", err)
	}
	setDefaults("", tree)

	// Keys omitted from the encoded defaults when empty.
	for _, key := range []string{"ai.api_key", "ai.base_url", "literature.email"} {
		if err := viper.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig merges defaults, the config file, environment, command flags,
// and secrets into one PipelineConfig.
func loadConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.Squash = true
	})
	if err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	if f := cmd.Flags().Lookup("results-dir"); f != nil && f.Changed {
		cfg.ResultsDir = f.Value.String()
	}
	if f := cmd.Flags().Lookup("provider"); f != nil && f.Changed {
		cfg.AI.Provider = types.AIProvider(f.Value.String())
	}
	if f := cmd.Flags().Lookup("model"); f != nil && f.Changed {
		cfg.AI.Model = f.Value.String()
	}
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		cfg.Phases.Format = types.QuestionFormat(f.Value.String())
	}
	if f := cmd.Flags().Lookup("literature"); f != nil && f.Changed {
		cfg.Literature.Enabled = f.Value.String() == "true"
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = secrets.Lookup(loadedSecrets, generate.SecretKey(cfg.AI.Provider))
	}
	return cfg, nil
}

// addPipelineFlags registers the flags shared by commands that run the
// pipeline.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("results-dir", "", "base directory for run results (default chronos_results)")
	cmd.Flags().String("provider", "", "model provider: gemini, openai, or claude")
	cmd.Flags().String("model", "", "model identifier")
	cmd.Flags().String("format", "", "question format: h-format or detailed")
	cmd.Flags().Bool("literature", false, "check top-ranked hypotheses against OpenAlex")
}

// newPipeline builds the generator, text extractor, and optional
// literature verifier for cfg.
func newPipeline(ctx context.Context, cfg types.PipelineConfig, status *pipeline.StatusStore, opts ...pipeline.Option) (*pipeline.Pipeline, *generate.Generator, error) {
	backend, err := generate.NewBackend(ctx, cfg.AI)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s backend: %w", cfg.AI.Provider, err)
	}
	gen := generate.NewGenerator(backend, cfg.AI, logger)

	extractor, err := ocr.NewExtractor(ctx, cfg.OCR, gen, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Literature.Enabled {
		verifier := &literature.Verifier{
			Search:     literature.NewOpenAlex(cfg.Literature, loadedSecrets),
			MaxResults: cfg.Literature.MaxResults,
			Logger:     logger,
		}
		opts = append(opts, pipeline.WithVerifier(verifier))
	}
	return pipeline.New(gen, extractor, status, opts...), gen, nil
}
