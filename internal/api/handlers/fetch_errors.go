// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/dealdash/internal/models"
)

const (
	defaultErrorLimit = 20
	maxErrorLimit     = 50
)

// FetchErrorLister reads the recorded failures of one content id
type FetchErrorLister interface {
	GetRecentErrors(ctx context.Context, contentID int64, limit int) ([]models.FetchError, error)
}

type FetchErrorsHandler struct {
	store FetchErrorLister
}

func NewFetchErrorsHandler(store FetchErrorLister) *FetchErrorsHandler {
	return &FetchErrorsHandler{store: store}
}

// ListErrors returns the newest failures first, ?limit= caps the count
func (h *FetchErrorsHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "contentID")
	if !ok {
		RespondError(w, http.StatusBadRequest, "Invalid content ID")
		return
	}

	limit := defaultErrorLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(parsed, maxErrorLimit)
	}

	fetchErrors, err := h.store.GetRecentErrors(r.Context(), id, limit)
	if err != nil {
		log.Error().Err(err).Int64("contentID", id).Msg("Failed to list fetch errors")
		RespondError(w, http.StatusInternalServerError, "Failed to list fetch errors")
		return
	}

	RespondJSON(w, http.StatusOK, fetchErrors)
}
