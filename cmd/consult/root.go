package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lexconsult/consult-client/internal/app"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/db"
	"github.com/spf13/cobra"
)

const loginHint string = "Your session has ended, log in again with: consult login --phone <phone>"

// cli holds what the subcommands share, the app is only built once a subcommand runs
type cli struct {
	out       io.Writer
	configDir string
	logLevel  string
	app       *app.App
}

func rootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	cmd := &cobra.Command{
		Use:   "consult",
		Short: "Legal consultation client",
		Long: `consult talks to the legal consultation backend.

It keeps the login between invocations, refreshes expired access tokens
transparently and streams consultation answers as they are produced.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	cmd.PersistentFlags().StringVarP(&c.configDir, "config", "c", "", "Directory containing config.yaml and secret_config.yaml")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.askCmd(),
		c.chatCmd(),
		c.historyCmd(),
		c.reviewCmd(),
		c.knowledgeCmd(),
		c.favoritesCmd(),
		c.lawsCmd(),
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	switch strings.ToLower(c.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	configPaths := []string{}
	if c.configDir != "" {
		configPaths = append(configPaths, c.configDir)
	}
	consultConfig, err := config.NewConfigHandler(configPaths...).Config()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// the session marker lives as long as the temporary directory of the user
	sessionRepo, err := db.NewDiskAdapter(sessionDir())
	if err != nil {
		return fmt.Errorf("open session directory: %w", err)
	}
	c.app, err = app.New(cmd.Context(), consultConfig,
		app.WithSessionRepository(sessionRepo),
		app.WithRedirectHook(func(ctx context.Context, route string) {
			slog.Debug("CLI", "message", "session terminated", "route", route)
		}),
	)
	if err != nil {
		return fmt.Errorf("initialize client: %w", err)
	}
	return nil
}

func sessionDir() string {
	return filepath.Join(os.TempDir(), "consult-session-"+strconv.Itoa(os.Getuid()))
}
