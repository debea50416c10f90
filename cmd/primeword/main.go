// Package main is the entry point for the primeword binary. It serves the
// anagram checker over HTTP or answers a single query from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/japaniel/primeword/pkg/anagram"
	"github.com/japaniel/primeword/pkg/app"
	"github.com/japaniel/primeword/pkg/config"
	"github.com/japaniel/primeword/pkg/logging"
	"github.com/japaniel/primeword/pkg/server"
)

var version = "dev"

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "primeword",
		Short: "Anagram checker that finds prime words",
		Long: `primeword indexes an English word list by sorted letters and reports,
for any word, the dictionary-backed anagrams that share its letters.
A word is prime when it is its own only defined anagram.

Example:
  primeword serve --addr :3000
  primeword check islet`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (json, text)")

	rootCmd.AddCommand(newServeCmd(opts), newCheckCmd(opts), newVersionCmd())
	return rootCmd
}

// load reads the configuration and applies flag overrides.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, cmd.ErrOrStderr())
	return cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the anagram checker over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)
			if !a.Ready() {
				logger.Warn("corpus is empty, every query will report no anagrams")
			}

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(a.Engine, cfg.Server, server.Options{
				Metrics: a.Metrics,
				Ready:   a.Ready,
				Logger:  logger,
			})
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr and PORT)")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check <word>",
		Short: "Check a single word and print its defined anagrams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)

			res, err := a.Engine.Query(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// closeApp shuts a down, logging anything it could not release.
func closeApp(a *app.App, logger *slog.Logger) {
	if err := a.Close(); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "primeword %s\n", version)
		},
	}
}

func printResult(w io.Writer, res *anagram.Result) {
	fmt.Fprintf(w, "word:         %s\n", res.Word)
	fmt.Fprintf(w, "sorted key:   %s\n", res.Signature)
	fmt.Fprintf(w, "permutations: %s\n", res.TotalPermutations)
	fmt.Fprintf(w, "anagrams:     %d\n", res.ValidCount)
	for _, c := range res.Candidates {
		marker := " "
		if c.IsCommon {
			marker = "*"
		}
		def := ""
		if c.Definition != nil {
			def = *c.Definition
		}
		fmt.Fprintf(w, "  %s %s: %s\n", marker, c.Word, def)
	}
	prime := "no"
	if res.IsPrime {
		prime = "yes"
	}
	fmt.Fprintf(w, "prime:        %s\n", prime)
}

// execute runs the root command with args under ctx.
func execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}
