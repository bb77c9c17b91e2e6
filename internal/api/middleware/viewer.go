// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/dealdash/internal/estuary"
	"github.com/autobrr/dealdash/internal/models"
)

// TokenSource reads the API token a request was signed in with
type TokenSource interface {
	Token(r *http.Request) (string, error)
}

// ViewerResolver asks the backend who a token belongs to
type ViewerResolver interface {
	Viewer(ctx context.Context, token string) (*models.Viewer, error)
}

// RequireViewer resolves the viewer before the wrapped handler runs and hands
// every unauthenticated request to deny instead.
func RequireViewer(tokens TokenSource, resolver ViewerResolver, deny http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := tokens.Token(r)
			if err != nil {
				deny.ServeHTTP(w, r)
				return
			}

			viewer, err := resolver.Viewer(r.Context(), token)
			if err != nil || viewer == nil {
				if err != nil && !errors.Is(err, estuary.ErrUnauthorized) && !errors.Is(err, context.Canceled) {
					log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to resolve viewer")
				}
				deny.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(models.WithViewer(r.Context(), viewer)))
		})
	}
}

// RedirectTo answers with a temporary redirect to target
func RedirectTo(target string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})
}

// Unauthorized answers with a JSON 401 for API clients
func Unauthorized() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not authenticated"})
	})
}
