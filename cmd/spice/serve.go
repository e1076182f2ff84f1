package main

import (
	"github.com/Veraticus/spice-capture/internal/api"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the capture API over HTTP",
		Long: `Serve capture sessions over HTTP so a browser or phone can capture
transactions. Prometheus metrics are exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, appOptions{classify: true, metrics: true})
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			srv := api.NewServer(api.Config{
				Addr:              a.cfg.Server.Addr,
				OwnerID:           a.cfg.OwnerID,
				SessionTTL:        a.cfg.Server.SessionTTL,
				RateLimit:         a.cfg.Server.RateLimit,
				RateBurst:         a.cfg.Server.RateBurst,
				MaxRecordingBytes: a.cfg.Capture.MaxRecordingBytes,
				MaxImageBytes:     a.cfg.Capture.MaxImageBytes,
			}, api.Deps{
				Classifier: a.classifier,
				Finalizer:  a.finalizer,
				Store:      a.store,
				Metrics:    a.metrics,
				Logger:     a.logger,
			})

			common.LogInfo("capture API listening", common.Fields{
				"addr":   a.cfg.Server.Addr,
				"owner":  a.cfg.OwnerID,
				"events": a.publisher.Enabled(),
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
