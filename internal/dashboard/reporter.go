// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dashboard

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/autobrr/dealdash/internal/models"
)

// ErrorReporter receives failed backend fetches. contentID is zero for the listing.
type ErrorReporter interface {
	ReportFetchError(ctx context.Context, contentID int64, operation string, err error)
}

// FetchErrorRecorder persists failures; satisfied by *models.FetchErrorStore
type FetchErrorRecorder interface {
	RecordError(ctx context.Context, contentID int64, operation string, err error) error
}

// Reporter logs every failure and, when a recorder is set, keeps it for the deal log
type Reporter struct {
	logger   zerolog.Logger
	recorder FetchErrorRecorder
}

func NewReporter(logger zerolog.Logger, recorder FetchErrorRecorder) *Reporter {
	return &Reporter{
		logger:   logger,
		recorder: recorder,
	}
}

func (r *Reporter) ReportFetchError(ctx context.Context, contentID int64, operation string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	event := r.logger.Warn()
	if operation == models.OperationListContents {
		event = r.logger.Error()
	}
	event.Err(err).Int64("contentID", contentID).Str("operation", operation).Msg("Failed to fetch deal data")

	if r.recorder == nil {
		return
	}

	// The request context may already be gone; the record should still land
	if err := r.recorder.RecordError(context.WithoutCancel(ctx), contentID, operation, err); err != nil {
		r.logger.Error().Err(err).Int64("contentID", contentID).Msg("Failed to record fetch error")
	}
}
