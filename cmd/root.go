// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"reelwatch/internal/app"
	"reelwatch/internal/config"
	"reelwatch/internal/embed"
	"reelwatch/internal/httputil"
	"reelwatch/internal/media"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagSource  string
	flagBrowser string
	flagBackend string
	flagJSON    bool
	flagDebug   bool
)

// cfg holds the loaded configuration (merged: defaults < config file < env < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "reelwatch [query]",
	Short: "Discover movies and TV shows and watch them in your browser",
	Long: `reelwatch browses trending and popular titles from TMDB, keeps your
bookmarks, ratings and watch progress, and opens embed players in the browser.
Run without arguments for the interactive menu, or pass a search query.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              interactiveRun,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "Embed source: vidsrc | vidlink | superembed")
	rootCmd.PersistentFlags().StringVar(&flagBrowser, "browser", "", "Browser command (default: system opener, \"print\" to only print URLs)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Remote reelwatch server URL (default: local database)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration, then sets up logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagSource != "" {
		cfg.Source = flagSource
	}
	if flagBrowser != "" {
		cfg.Browser = flagBrowser
	}
	if flagBackend != "" {
		cfg.Backend = flagBackend
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging()
	return nil
}

// setupLogging sends log output to a rotated file when log_file is set.
// Without it, logs go to stderr in debug mode and are discarded otherwise
// so background failures do not garble the prompts.
func setupLogging() {
	log.SetFlags(0)
	switch {
	case cfg.LogFile != "":
		log.SetFlags(log.LstdFlags)
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    5, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	case cfg.Debug:
		log.SetOutput(os.Stderr)
		log.SetPrefix("[reelwatch] ")
	default:
		log.SetOutput(io.Discard)
	}
}

// debugf logs a message if debug mode is enabled.
func debugf(format string, args ...interface{}) {
	if cfg != nil && cfg.Debug {
		log.Printf(format, args...)
	}
}

// openApp wires the application and restores the previous session. The
// caller closes it.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	a.Start(ctx)
	if u := a.Auth.User(); u != nil {
		debugf("signed in as %s", u.Nickname)
	}
	return a, nil
}

// withApp runs fn against a freshly opened app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			debugf("closing: %v", err)
		}
	}()
	return fn(ctx, a)
}

// parseRef turns "<movie|tv> <id>" arguments into a Ref.
func parseRef(args []string) (media.Ref, error) {
	if len(args) < 2 {
		return media.Ref{}, fmt.Errorf("expected <movie|tv> <id>")
	}
	t, err := media.ParseMediaType(args[0])
	if err != nil {
		return media.Ref{}, err
	}
	if err := httputil.ValidateNumericID(args[1]); err != nil {
		return media.Ref{}, err
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 {
		return media.Ref{}, fmt.Errorf("invalid id %q", args[1])
	}
	return media.Ref{ID: id, Type: t}, nil
}

// atoiPositive parses a season or episode number typed by the user.
func atoiPositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("expected a number of at least 1, got %q", s)
	}
	return n, nil
}

// parseMediaTypeArg reads an optional "movies" / "tv" filter argument.
func parseMediaTypeArg(args []string) (media.MediaType, bool) {
	if len(args) == 0 {
		return media.Movie, false
	}
	t, err := media.ParseMediaType(args[0])
	if err != nil {
		return media.Movie, false
	}
	return t, true
}

// preferredSource returns the configured embed source.
func preferredSource() embed.Source {
	src, err := embed.ParseSource(cfg.Source)
	if err != nil {
		return embed.Primary
	}
	return src
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// notice prints a one-line message for the user on stderr.
func notice(format string, args ...any) {
	fmt.Fprintln(os.Stderr, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reelwatch " + Version)
	},
}
