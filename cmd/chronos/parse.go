// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chronos/internal/hypothesis"
	"github.com/pdiddy/chronos/internal/phases"
)

var parseCmd = &cobra.Command{
	Use:   "parse <research-questions.txt | ->",
	Short: "Parse saved model output into hypothesis records",
	Long: `Parse reads Phase 4 output (a file, or stdin when the argument is "-")
and prints the assembled hypothesis records with parse diagnostics. With
--out-dir it also writes the raw text, a rendering, and the records as
JSON and YAML, the same artifacts a full run produces.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		raw := string(data)
		res, err := hypothesis.NewParser(logger).ParseStrict(raw)
		if err != nil {
			return err
		}

		if w := res.Warning(); w != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
		}

		if outDir, _ := cmd.Flags().GetString("out-dir"); outDir != "" {
			a, err := hypothesis.WriteArtifacts(outDir, time.Now().Format(phases.StampLayout), raw, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", a.YAML)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			out, err := hypothesis.MarshalJSON(res)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
			return err
		}
		return hypothesis.Render(cmd.OutOrStdout(), res)
	},
}

func init() {
	parseCmd.Flags().Bool("json", false, "print records as schema-validated JSON")
	parseCmd.Flags().String("out-dir", "", "also write parse artifacts to this directory")

	rootCmd.AddCommand(parseCmd)
}
