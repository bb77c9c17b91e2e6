// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/dealdash/internal/dashboard"
	"github.com/autobrr/dealdash/internal/estuary"
	"github.com/autobrr/dealdash/internal/models"
	"github.com/autobrr/dealdash/internal/web"
)

// PageLoader builds deals page state for a token
type PageLoader interface {
	Load(ctx context.Context, token string, opts dashboard.LoadOptions) dashboard.PageState
	LoadCard(ctx context.Context, token string, id int64, showFiles bool) (dashboard.CardView, error)
}

type DealsHandler struct {
	loader   PageLoader
	renderer *web.Renderer
	baseURL  string
}

func NewDealsHandler(loader PageLoader, renderer *web.Renderer, baseURL string) *DealsHandler {
	return &DealsHandler{
		loader:   loader,
		renderer: renderer,
		baseURL:  baseURL,
	}
}

// DealsPage renders the dashboard. ?show= lists expanded cards, ?q= filters by name or CID.
func (h *DealsHandler) DealsPage(w http.ResponseWriter, r *http.Request) {
	viewer, err := models.ViewerFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, h.baseURL+"sign-in", http.StatusTemporaryRedirect)
		return
	}

	opts := loadOptions(r)
	state := h.loader.Load(r.Context(), viewer.Token, opts)
	if state.TornDown() {
		return
	}

	page := dashboard.BuildPage(state, viewer)
	if err := h.renderer.RenderDeals(w, http.StatusOK, web.NewDealsData(page, h.baseURL, opts.Expanded)); err != nil {
		log.Error().Err(err).Msg("Failed to render deals page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// ListDeals returns the same page as JSON, cards newest first
func (h *DealsHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	viewer, err := models.ViewerFromContext(r.Context())
	if err != nil {
		RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	state := h.loader.Load(r.Context(), viewer.Token, loadOptions(r))
	if state.TornDown() {
		return
	}

	RespondJSON(w, http.StatusOK, dashboard.BuildPage(state, viewer))
}

// GetDeal returns one card; ?showFiles=true lifts the file preview limit
func (h *DealsHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	viewer, err := models.ViewerFromContext(r.Context())
	if err != nil {
		RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	id, ok := parseIDParam(r, "contentID")
	if !ok {
		RespondError(w, http.StatusBadRequest, "Invalid content ID")
		return
	}

	showFiles, _ := strconv.ParseBool(r.URL.Query().Get("showFiles"))

	card, err := h.loader.LoadCard(r.Context(), viewer.Token, id, showFiles)
	if err != nil {
		switch {
		case errors.Is(err, dashboard.ErrNotFound):
			RespondError(w, http.StatusNotFound, "Content not found")
		case errors.Is(err, estuary.ErrUnauthorized):
			RespondError(w, http.StatusUnauthorized, "Not authenticated")
		case errors.Is(err, context.Canceled):
		default:
			RespondError(w, http.StatusBadGateway, "Failed to fetch deal status")
		}
		return
	}

	RespondJSON(w, http.StatusOK, card)
}

func loadOptions(r *http.Request) dashboard.LoadOptions {
	query := r.URL.Query()

	opts := dashboard.LoadOptions{
		Query: strings.TrimSpace(query.Get("q")),
	}
	for _, raw := range query["show"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		opts.Expanded = append(opts.Expanded, id)
	}

	return opts
}
