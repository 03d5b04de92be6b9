package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/wcfm-archiver/internal/archiver"
	"github.com/maauso/wcfm-archiver/internal/bootstrap"
	"github.com/maauso/wcfm-archiver/internal/runid"
	"github.com/maauso/wcfm-archiver/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record and archive audio until stopped",
		Long:  "Records until SIGINT, SIGTERM or a line containing q on standard input.",
		Args:  cobra.NoArgs,
		RunE:  runArchiver,
	}

	RootCmd.AddCommand(cmd)
}

func runArchiver(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("failed to close segment log", slog.String("error", err.Error()))
		}
	}()

	archiver.LogBanner(runid.Logger(logger, deps.Engine.RunID()),
		deps.Settings, cfg.Format(), cfg.MaxFiles, cfg.ReuseExisting)

	ctx, quit := context.WithCancel(ctx)
	defer quit()
	go watchQuitKey(cmd.InOrStdin(), quit, logger)

	if cfg.HTTPAddr != "" {
		handlers := server.NewHandlers(deps.Engine, deps.Ledger, deps.Storage, logger)
		router := server.NewRouter(handlers, deps.Registry, logger, server.Config{AllowedOrigins: cfg.CORSOrigins})
		srv := server.New(cfg.HTTPAddr, router, logger)
		go func() {
			if err := srv.Serve(ctx); err != nil {
				logger.Error("status server", slog.String("error", err.Error()))
			}
		}()
	}

	if err := deps.Engine.Run(ctx); err != nil {
		return fmt.Errorf("archiver: %w", err)
	}
	return nil
}

// watchQuitKey cancels the run when a line reading "q" arrives on in.
func watchQuitKey(in io.Reader, quit context.CancelFunc, logger *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if strings.EqualFold(strings.TrimSpace(scanner.Text()), "q") {
			logger.Info("quit requested")
			quit()
			return
		}
	}
}
