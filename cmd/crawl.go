// Package cmd defines and implements the CLI commands for the novelcrawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl <novel-id>",
		Short: "Downloads one novel",
		Long: `Fetches the novel's catalog, follows the next-chapter chain from the
first chapter back to the catalog, and saves every page and illustration.`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()
	novelID := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	metricsCtx, stopMetrics := context.WithCancel(gctx)
	defer stopMetrics()
	g.Go(func() error {
		return appInstance.ServeMetrics(metricsCtx)
	})
	g.Go(func() error {
		defer stopMetrics()
		stats, err := appInstance.Crawl(gctx, novelID)
		if err != nil {
			return fmt.Errorf("crawl novel %s: %w", novelID, err)
		}
		logger.Info("crawl command finished",
			zap.String("novel_id", novelID),
			zap.Int("chapters", stats.Chapters),
			zap.Int("images", stats.Images),
		)
		return nil
	})
	return g.Wait()
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
