package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pagewise/bookstore/backend/internal/app"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/config"
	"github.com/pagewise/bookstore/backend/pkg/secrets"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "reportctl",
	Short: "Operate bookstore insight reports",
	Long: `reportctl runs insight report maintenance outside the API process:
failing stuck reports, generating a report synchronously and inspecting progress.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// withContainer loads configuration and dependencies for a single command run.
func withContainer(ctx context.Context, fn func(ctx context.Context, c *app.Container) error) error {
	if _, err := secrets.Apply(ctx, secrets.VaultConfigFromEnv(), nil); err != nil {
		return fmt.Errorf("load secrets: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-reportctl", cfg.Log.Env, level)

	c, err := app.Build(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("build dependencies: %w", err)
	}
	defer c.Close(context.WithoutCancel(ctx))

	return fn(ctx, c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
