// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/dealdash/internal/estuary"
	"github.com/autobrr/dealdash/internal/models"
	"github.com/autobrr/dealdash/internal/web"
)

// SessionStore keeps the API token between requests
type SessionStore interface {
	Token(r *http.Request) (string, error)
	SetToken(w http.ResponseWriter, r *http.Request, token string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// ViewerLookup resolves a token to its account
type ViewerLookup interface {
	Viewer(ctx context.Context, token string) (*models.Viewer, error)
}

type AuthHandler struct {
	sessions SessionStore
	viewers  ViewerLookup
	renderer *web.Renderer
	baseURL  string
}

func NewAuthHandler(sessions SessionStore, viewers ViewerLookup, renderer *web.Renderer, baseURL string) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		viewers:  viewers,
		renderer: renderer,
		baseURL:  baseURL,
	}
}

// SignInPage shows the token form, or skips it for a signed-in viewer
func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	if token, err := h.sessions.Token(r); err == nil {
		if _, err := h.viewers.Viewer(r.Context(), token); err == nil {
			http.Redirect(w, r, h.baseURL+"deals", http.StatusSeeOther)
			return
		}
	}

	h.renderSignIn(w, http.StatusOK, "")
}

// SignIn checks the submitted API token against the backend before storing it
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderSignIn(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		h.renderSignIn(w, http.StatusBadRequest, "An API key is required")
		return
	}

	viewer, err := h.viewers.Viewer(r.Context(), token)
	if err != nil {
		if errors.Is(err, estuary.ErrUnauthorized) {
			h.renderSignIn(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		log.Error().Err(err).Msg("Failed to verify API key")
		h.renderSignIn(w, http.StatusBadGateway, "Could not reach the storage API, try again")
		return
	}

	if err := h.sessions.SetToken(w, r, token); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
		h.renderSignIn(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	log.Info().Int64("viewer_id", viewer.ID).Str("username", viewer.Username).Msg("Viewer signed in")

	http.Redirect(w, r, h.baseURL+"deals", http.StatusSeeOther)
}

// SignOut drops the session cookie
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		log.Error().Err(err).Msg("Failed to clear session")
		RespondError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	http.Redirect(w, r, h.baseURL+"sign-in", http.StatusSeeOther)
}

// GetViewer returns the signed-in account
func (h *AuthHandler) GetViewer(w http.ResponseWriter, r *http.Request) {
	viewer, err := models.ViewerFromContext(r.Context())
	if err != nil {
		RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	RespondJSON(w, http.StatusOK, viewer)
}

func (h *AuthHandler) renderSignIn(w http.ResponseWriter, status int, message string) {
	if err := h.renderer.RenderSignIn(w, status, web.SignInData{BaseURL: h.baseURL, Error: message}); err != nil {
		log.Error().Err(err).Msg("Failed to render sign-in page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
