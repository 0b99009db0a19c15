package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/history"
	"github.com/KaramelBytes/csvscope-cli/internal/ingest"
	"github.com/KaramelBytes/csvscope-cli/internal/logging"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
	"github.com/KaramelBytes/csvscope-cli/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	svAddr  string
	svSweep time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload, scoring and dashboard API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if svSweep <= 0 {
			return fmt.Errorf("--sweep-interval must be positive, got %s", svSweep)
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if svAddr != "" {
			addr = svAddr
		}
		opt := server.Options{
			MaxUploadBytes: c.MaxFileSizeBytes(),
			Ingest:         ingest.Options{MaxRows: c.MaxRows},
			Clean:          analysis.CleanOptions{DropThreshold: c.DropThreshold},
		}
		if c.HistoryEnabled {
			store, err := history.Open(c.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()
			opt.History = store
		}
		srv := server.New(
			server.NewSessionStore(c.SessionTTL()),
			quality.NewCachedScorer(c.CacheTTL(), c.CacheMaxEntries),
			opt,
		)

		ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		})
		g.Go(func() error { return srv.SweepEvery(ctx, svSweep) })
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logging.New("serve").Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&svAddr, "addr", "", "listen address (default from config listen_addr)")
	serveCmd.Flags().DurationVar(&svSweep, "sweep-interval", time.Minute, "how often expired sessions are removed")
}
