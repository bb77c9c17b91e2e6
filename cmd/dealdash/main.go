// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/dealdash/internal/api"
	"github.com/autobrr/dealdash/internal/auth"
	"github.com/autobrr/dealdash/internal/buildinfo"
	"github.com/autobrr/dealdash/internal/config"
	"github.com/autobrr/dealdash/internal/dashboard"
	"github.com/autobrr/dealdash/internal/database"
	"github.com/autobrr/dealdash/internal/estuary"
	httpserver "github.com/autobrr/dealdash/internal/http"
	"github.com/autobrr/dealdash/internal/metrics"
	"github.com/autobrr/dealdash/internal/models"
	"github.com/autobrr/dealdash/internal/web"
)

const databaseFileName = "dealdash.db"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dealdash",
		Short: "Storage deal dashboard for Estuary",
		Long: `dealdash renders the Filecoin storage deals of an Estuary account.

Sign in with an API key to see every upload, its aggregated files and the
storage provider deals made for it.`,
	}

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configDir)
		},
	}

	command.Flags().StringVar(&configDir, "config", defaultConfigDir(), "config directory")

	return command
}

func RunVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(buildinfo.String())
		},
	}
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dealdash")
	}
	return "."
}

func runServe(ctx context.Context, configDir string) error {
	cfg, err := config.New(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.InitLogger()
	cfg.WatchConfig()

	log.Info().Str("version", buildinfo.Version).Str("config", configDir).Msg("Starting dealdash")

	dataDir := cfg.Config.DataDir
	if dataDir == "" {
		dataDir = configDir
	}
	db, err := database.New(filepath.Join(dataDir, databaseFileName))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	metricsManager := metrics.NewMetricsManager()
	fetchErrors := models.NewFetchErrorStore(db.Conn())

	estuaryCfg := cfg.Config.Estuary
	client := estuary.NewClient(estuaryCfg.URL, time.Duration(estuaryCfg.Timeout)*time.Second, metricsManager)
	backend, err := estuary.NewCachedClient(client, time.Duration(estuaryCfg.StatusCacheTTL)*time.Second, metricsManager)
	if err != nil {
		return err
	}
	defer backend.Close()

	reporter := dashboard.NewReporter(log.Logger.With().Str("module", "dashboard").Logger(), fetchErrors)
	loader := dashboard.NewLoader(backend, reporter, metricsManager, estuaryCfg.StatusConcurrency)

	sessions, err := auth.NewSessions(cfg.Config.SessionSecret, cfg.Config.SecureCookies)
	if err != nil {
		return err
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	server := api.NewServer(&api.Dependencies{
		Config:      cfg,
		Sessions:    sessions,
		Viewers:     backend,
		Loader:      loader,
		FetchErrors: fetchErrors,
		DB:          db.Conn(),
		Renderer:    renderer,
	})

	var metricsServer *httpserver.MetricsServer
	if cfg.Config.MetricsEnabled {
		users := httpserver.ParseBasicAuthUsers(cfg.Config.MetricsBasicAuthUsers)
		metricsServer = httpserver.NewMetricsServer(metricsManager, cfg.Config.MetricsHost, cfg.Config.MetricsPort, users)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			log.Info().Str("host", cfg.Config.MetricsHost).Int("port", cfg.Config.MetricsPort).Msg("Starting metrics server")
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("Server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down server")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down metrics server")
		}
	}

	log.Info().Msg("Server stopped")

	return runErr
}
