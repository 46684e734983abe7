// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chronos/internal/pipeline"
	"github.com/pdiddy/chronos/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve document uploads and run status over HTTP",
	Long: `Serve starts the upload service. POST a document to /upload as the
multipart field "file"; the response carries a unique_id to poll at
/status/{id} and, once complete, /results/{id}. POST raw Phase 4 text to
/parse to get structured records back directly.

On SIGINT or SIGTERM the server stops accepting requests and cancels
running pipelines.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if f := cmd.Flags().Lookup("addr"); f.Changed {
			cfg.Serve.Addr = f.Value.String()
		}
		if f := cmd.Flags().Lookup("upload-dir"); f.Changed {
			cfg.Serve.UploadDir = f.Value.String()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		status := pipeline.NewStatusStore(cfg.Serve.StatusTTL)
		p, _, err := newPipeline(ctx, cfg, status)
		if err != nil {
			return err
		}
		return server.New(cfg, p, status, logger).ListenAndServe(ctx)
	},
}

func init() {
	addPipelineFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("upload-dir", "", "directory for uploaded documents (default uploads)")

	rootCmd.AddCommand(serveCmd)
}
