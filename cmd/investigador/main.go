package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nexconsult/investigacao-api/internal/config"
	"github.com/nexconsult/investigacao-api/internal/logger"
	"github.com/nexconsult/investigacao-api/internal/services"
)

var (
	outputJSON bool
	verbose    bool

	// app is built once per invocation by the root pre-run hook
	app *services.Container

	// buildContainer is replaced in tests
	buildContainer = containerFromEnv

	rootCmd = &cobra.Command{
		Use:   "investigador",
		Short: "Operator CLI for the asset investigation engine",
		Long: `investigador runs scans, retries failed queries and inspects providers
and budgets against the same storage the API uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer(verbose)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			app = c
			return nil
		},
	}
)

func containerFromEnv(verbose bool) (*services.Container, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.Discard()
	if verbose {
		log = logger.NewWithOutput(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	}
	return services.NewContainer(cfg, log)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write engine logs to stderr")
}

// shutdown drains the task queue and closes storage. It runs whether or not
// the command failed; post-run hooks are skipped on error.
func shutdown() {
	if app == nil {
		return
	}
	if err := app.Close(config.DefaultTimeoutConfig().ShutdownTimeout); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: shutdown incomplete: %v\n", err)
	}
	app = nil
}

func main() {
	start := time.Now()
	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "done in %s\n", time.Since(start).Round(time.Millisecond))
	}
}
