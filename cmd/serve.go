package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelwatch/internal/backend/sqlite"
	"reelwatch/internal/config"
	"reelwatch/internal/server"
	"reelwatch/internal/session"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local database as a backend for other reelwatch clients",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved session state",
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the current page, selection and player positions",
	Args:  cobra.NoArgs,
	RunE:  sessionClearRun,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (default from config)")
	sessionCmd.AddCommand(sessionClearCmd)
	rootCmd.AddCommand(serveCmd, sessionCmd)
}

func serveRun(cmd *cobra.Command, args []string) error {
	if cfg.Remote() {
		return fmt.Errorf("serve uses the local database; unset backend")
	}
	if cfg.LogFile == "" {
		// Request logs are the point of a server; keep them visible.
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	}

	addr := cfg.Listen
	if flagListen != "" {
		addr = flagListen
	}

	path, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notice("Serving %s on http://%s", path, addr)
	return server.New(store).ListenAndServe(ctx, addr)
}

func sessionClearRun(cmd *cobra.Command, args []string) error {
	path, err := config.SessionPath()
	if err != nil {
		return err
	}
	storage, err := session.Open(path)
	if err != nil {
		return err
	}
	n := storage.Len()
	if err := storage.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	notice("Cleared %d saved entries.", n)
	return nil
}
