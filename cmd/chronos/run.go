// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chronos/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <document>",
	Short: "Run the four-phase pipeline on one document",
	Long: `Run extracts text from a PDF, image, or text file, then runs the
brainstorm, context, distillation, and formulation phases against the
configured model. Every intermediate artifact, the knowledge graph, and
the parsed hypotheses are written under results-dir/<run id>/.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		p, gen, err := newPipeline(ctx, cfg, pipeline.NewStatusStore(0), pipeline.WithProgress(os.Stderr))
		if err != nil {
			return err
		}
		rc, err := pipeline.NewRunContext(args[0], "", cfg, logger, time.Now)
		if err != nil {
			return err
		}

		res, err := p.Run(ctx, rc)
		stats := gen.Stats()
		fmt.Fprintf(os.Stderr, "model requests: %d (%d retries, %d rate limited, %d failed)\n",
			stats.Requests, stats.Retries, stats.RateLimited, stats.Failures)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Printf("%s: %d hypotheses, results in %s\n", rc.ID, res.Status.HypothesesCount, rc.ResultDir)
		if res.Status.Warning != "" {
			fmt.Printf("warning: %s\n", res.Status.Warning)
		}
		steps := make([]string, 0, len(res.StepErrors))
		for step := range res.StepErrors {
			steps = append(steps, step)
		}
		sort.Strings(steps)
		for _, step := range steps {
			fmt.Printf("step %s: %s\n", step, res.StepErrors[step])
		}
		for i, r := range res.Top {
			fmt.Printf("%d. H%d %s\n", i+1, r.SequenceID, r.DomainTitle)
		}
		return nil
	},
}

func init() {
	addPipelineFlags(runCmd)
	runCmd.Flags().Bool("json", false, "print the run result as JSON")

	rootCmd.AddCommand(runCmd)
}
