// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/dealdash/internal/api/handlers"
	"github.com/autobrr/dealdash/internal/api/middleware"
	"github.com/autobrr/dealdash/internal/config"
	"github.com/autobrr/dealdash/internal/web"
)

//go:embed openapi.yaml
var openAPISpec []byte

type Server struct {
	server *http.Server
	logger zerolog.Logger
	config *config.AppConfig

	sessions    handlers.SessionStore
	viewers     handlers.ViewerLookup
	loader      handlers.PageLoader
	fetchErrors handlers.FetchErrorLister
	db          handlers.Pinger
	renderer    *web.Renderer
}

func NewServer(deps *Dependencies) *Server {
	s := Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:      log.Logger.With().Str("module", "api").Logger(),
		config:      deps.Config,
		sessions:    deps.Sessions,
		viewers:     deps.Viewers,
		loader:      deps.Loader,
		fetchErrors: deps.FetchErrors,
		db:          deps.DB,
		renderer:    deps.Renderer,
	}

	if val := deps.Config.Config.HTTPTimeouts.ReadTimeout; val > 0 {
		s.server.ReadTimeout = time.Duration(val) * time.Second
	}
	if val := deps.Config.Config.HTTPTimeouts.WriteTimeout; val > 0 {
		s.server.WriteTimeout = time.Duration(val) * time.Second
	}
	if val := deps.Config.Config.HTTPTimeouts.IdleTimeout; val > 0 {
		s.server.IdleTimeout = time.Duration(val) * time.Second
	}

	return &s
}

func (s *Server) ListenAndServe() error {
	return s.Open()
}

func (s *Server) Open() error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var err error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		if err = s.tryToServe(addr, proto); err == nil || errors.Is(err, http.ErrServerClosed) {
			break
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msgf("Failed to start server")
	}

	return err
}

func (s *Server) tryToServe(addr, protocol string) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	s.logger.Info().Str("protocol", protocol).Str("addr", listener.Addr().String()).Str("base_url", s.baseURL()).Msg("Starting server")

	s.server.Handler = s.Handler()

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) baseURL() string {
	if s.config.Config.BaseURL == "" {
		return "/"
	}
	return s.config.Config.BaseURL
}

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	// gzip, brotli, zstd and deflate, negotiated per request
	compressor, err := httpcompression.DefaultAdapter()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	baseURL := s.baseURL()

	healthHandler := handlers.NewHealthHandler(s.db)
	authHandler := handlers.NewAuthHandler(s.sessions, s.viewers, s.renderer, baseURL)
	dealsHandler := handlers.NewDealsHandler(s.loader, s.renderer, baseURL)
	fetchErrorsHandler := handlers.NewFetchErrorsHandler(s.fetchErrors)

	// Server-rendered pages
	pages := chi.NewRouter()
	pages.Group(func(r chi.Router) {
		r.Use(middleware.Logger(s.logger))
		r.Use(middleware.SecurityHeaders)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.ThrottleBacklog(4, 16, 10*time.Second))

			r.Get("/sign-in", authHandler.SignInPage)
			r.Post("/sign-in", authHandler.SignIn)
			r.Post("/sign-out", authHandler.SignOut)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireViewer(s.sessions, s.viewers, middleware.RedirectTo(baseURL+"sign-in")))

			r.Get("/deals", dealsHandler.DealsPage)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, baseURL+"deals", http.StatusTemporaryRedirect)
		})
	})

	// JSON API
	apiRouter := chi.NewRouter()
	apiRouter.Group(func(r chi.Router) {
		r.Use(middleware.Logger(s.logger))

		r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(openAPISpec)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireViewer(s.sessions, s.viewers, middleware.Unauthorized()))

			r.Get("/me", authHandler.GetViewer)

			r.Route("/deals", func(r chi.Router) {
				r.Get("/", dealsHandler.ListDeals)
				r.Get("/{contentID}", dealsHandler.GetDeal)
			})

			r.Get("/errors/{contentID}", fetchErrorsHandler.ListErrors)
		})
	})

	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/healthz/readiness", healthHandler.HandleReady)
	r.Get("/healthz/liveness", healthHandler.HandleLiveness)

	r.Mount(baseURL+"api", apiRouter)

	if baseURL != "/" {
		r.Mount(strings.TrimSuffix(baseURL, "/"), pages)

		r.Get("/", func(w http.ResponseWriter, request *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Must use baseUrl: " + baseURL + " instead of /"))
		})
	} else {
		r.Mount("/", pages)
	}

	return r
}

// Dependencies holds all the dependencies needed for the server
type Dependencies struct {
	Config      *config.AppConfig
	Sessions    handlers.SessionStore
	Viewers     handlers.ViewerLookup
	Loader      handlers.PageLoader
	FetchErrors handlers.FetchErrorLister
	DB          handlers.Pinger
	Renderer    *web.Renderer
}
