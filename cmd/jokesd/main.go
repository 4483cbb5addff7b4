package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/randomtoy/jokes-go/internal/adapters/jokeapi"
	"github.com/randomtoy/jokes-go/internal/app"
	"github.com/randomtoy/jokes-go/internal/config"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "jokesd",
		Short:         "Fetch a random joke on demand",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (default $JOKES_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		serveCmd(opts),
		fetchCmd(opts),
		versionCmd(),
	)
	return root
}

// load resolves the configuration, applying command-line overrides.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		level, err := config.ParseLogLevel(o.logLevel)
		if err != nil {
			return config.Config{}, err
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

func newController(cfg config.Config, logger *slog.Logger, opts ...app.Option) *app.FetchController {
	client := jokeapi.NewClient(&http.Client{Timeout: cfg.FetchTimeout}, cfg.JokeAPIURL, logger)
	return app.NewFetchController(client, append([]app.Option{app.WithLogger(logger)}, opts...)...)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "jokesd %s (%s)\n", version, commit)
}
