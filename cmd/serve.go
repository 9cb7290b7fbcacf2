package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/segmenta/internal/persist"
	"github.com/KaramelBytes/segmenta/internal/pipeline"
	"github.com/KaramelBytes/segmenta/internal/server"
	"github.com/KaramelBytes/segmenta/internal/session"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the segmentation pipeline over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store := session.NewMemory(time.Duration(c.SessionTTLMin)*time.Minute, session.WithLogger(logger))
		opts := []server.Option{
			server.WithMaxUpload(int64(c.MaxUploadMB) << 20),
			server.WithLogger(logger),
		}
		if c.RedisAddr != "" {
			rp, err := persist.Dial(ctx, c.RedisAddr, c.RedisDB, time.Duration(c.RedisKeyTTLSec)*time.Second)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer rp.Close()
			opts = append(opts, server.WithPersister(rp))
		} else {
			logger.Info("redis_addr not set; POST /persist is disabled")
		}

		srv := server.New(store, pipeline.New(pipelineOptions(c), logger), opts...)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on http://%s\n", addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
