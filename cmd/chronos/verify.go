// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chronos/internal/hypothesis"
	"github.com/pdiddy/chronos/internal/literature"
	"github.com/pdiddy/chronos/internal/phases"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <hypotheses.yaml>",
	Short: "Look up modern literature for parsed hypotheses",
	Long: `Verify searches OpenAlex for each of the first --top hypotheses in a
hypotheses YAML file (as written by run or parse --out-dir) and writes
verification_<timestamp>.yaml next to it. A hypothesis with no matching
work is marked novel.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		res, err := hypothesis.ReadYAML(args[0])
		if err != nil {
			return err
		}
		if len(res.Records) == 0 {
			return fmt.Errorf("no hypotheses in %s", args[0])
		}

		top, _ := cmd.Flags().GetInt("top")
		if top <= 0 {
			top = cfg.Phases.TopN
		}
		v := &literature.Verifier{
			Search:     literature.NewOpenAlex(cfg.Literature, loadedSecrets),
			MaxResults: cfg.Literature.MaxResults,
			Logger:     logger,
		}
		results := v.VerifyTop(cmd.Context(), res.Records, top)

		for _, r := range results {
			switch {
			case r.Error != "":
				fmt.Printf("failed  H%d: %s\n", r.SequenceID, r.Error)
			case r.Novel:
				fmt.Printf("novel   H%d: no works found for %q\n", r.SequenceID, r.Query)
			default:
				fmt.Printf("found   H%d: %d works, top %q\n", r.SequenceID, len(r.Hits), r.Hits[0].Title)
			}
		}

		path, err := literature.WriteVerification(filepath.Dir(args[0]), time.Now().Format(phases.StampLayout), results)
		if err != nil {
			return err
		}
		fmt.Println("Wrote", path)
		return nil
	},
}

func init() {
	verifyCmd.Flags().Int("top", 0, "number of hypotheses to check (default phases.top_n)")

	rootCmd.AddCommand(verifyCmd)
}
