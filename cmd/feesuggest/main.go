package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"feesuggest/internal/app"
	"feesuggest/internal/config"
)

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:           "feesuggest",
		Short:         "EIP-1559 fee suggestions from eth_feeHistory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	var (
		block string
		only  string
	)
	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print one set of fee suggestions as JSON",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := setup(configPath, stderrLogs, "text")
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := c.Context()
			var res interface{}
			switch strings.ToLower(only) {
			case "":
				res, err = a.Service().SuggestFees(ctx, block)
			case "base":
				res, err = a.Service().SuggestMaxBaseFee(ctx, block)
			case "priority":
				res, err = a.Service().SuggestMaxPriorityFee(ctx, block)
			default:
				return fmt.Errorf("--only %q must be base or priority", only)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	suggestCmd.Flags().StringVar(&block, "block", "", "newest block tag or number (default from config)")
	suggestCmd.Flags().StringVar(&only, "only", "", "restrict output to base or priority")
	rootCmd.AddCommand(suggestCmd)

	var withWatch bool
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve suggestions over HTTP",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := setup(configPath, func(cfg *config.Config) io.Writer {
				return serveLogOutput(cfg, withWatch)
			}, "")
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(c.Context(), withWatch)
		},
	}
	serveCmd.Flags().BoolVar(&withWatch, "watch", false, "also run the watch loop")
	rootCmd.AddCommand(serveCmd)

	var watchBlock string
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll suggestions and append them as JSON lines",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := setup(configPath, stderrLogs, "")
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Watch(c.Context(), watchBlock)
		},
	}
	watchCmd.Flags().StringVar(&watchBlock, "block", "", "newest block tag or number (default from config)")
	rootCmd.AddCommand(watchCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "feesuggest: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func stderrLogs(*config.Config) io.Writer {
	return os.Stderr
}

// serveLogOutput keeps logs off stdout when the watch loop writes its
// records there.
func serveLogOutput(cfg *config.Config, withWatch bool) io.Writer {
	if withWatch && cfg.Output.JSONLPath == "-" {
		return os.Stderr
	}
	return os.Stdout
}

// setup loads config and builds the app. A non-empty format overrides log.format.
func setup(configPath string, logOut func(*config.Config) io.Writer, format string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger, err := newLogger(cfg, logOut(cfg), format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return app.New(cfg, logger)
}

func newLogger(cfg *config.Config, w io.Writer, format string) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = cfg.Log.Format
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}
