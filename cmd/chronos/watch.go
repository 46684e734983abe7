// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chronos/internal/ocr"
	"github.com/pdiddy/chronos/internal/pipeline"
	"github.com/pdiddy/chronos/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Run the pipeline on documents dropped into a directory",
	Long: `Watch runs each supported document (PDF, image, text) written into dir
through the pipeline, one at a time, once the file has stopped changing
for --debounce. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, _, err := newPipeline(ctx, cfg, pipeline.NewStatusStore(0), pipeline.WithProgress(os.Stdout))
		if err != nil {
			return err
		}

		debounce, _ := cmd.Flags().GetDuration("debounce")
		existing, _ := cmd.Flags().GetBool("existing")
		w := &watch.Watcher{
			Dir:      args[0],
			Debounce: debounce,
			Accept:   ocr.Supported,
			Existing: existing,
			Logger:   logger,
		}
		err = w.Run(ctx, func(ctx context.Context, path string) error {
			rc, err := pipeline.NewRunContext(path, "", cfg, logger, time.Now)
			if err != nil {
				return err
			}
			_, err = p.Run(ctx, rc)
			return err
		})
		st := w.Stats()
		fmt.Fprintf(os.Stderr, "watch stopped: %d completed, %d failed\n", st.Handled, st.Failed)
		return err
	},
}

func init() {
	addPipelineFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", 2*time.Second, "quiet period before a file is processed")
	watchCmd.Flags().Bool("existing", false, "also process files already in the directory")

	rootCmd.AddCommand(watchCmd)
}
