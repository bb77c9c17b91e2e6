// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dashboard

import (
	"context"
	"errors"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/dealdash/internal/models"
)

const defaultStatusConcurrency = 8

// ErrNotFound is returned for ids that are not top-level entities of the viewer
var ErrNotFound = errors.New("content not found")

// Backend is the part of the storage API the deals page reads
type Backend interface {
	ListContents(ctx context.Context, token string) ([]models.ContentEntity, error)
	ContentStatus(ctx context.Context, token string, id int64) (*models.ContentStatus, error)
}

// PageObserver is told how many cards each loaded page carries
type PageObserver interface {
	ObservePage(cards int)
}

// LoadOptions are the per-request inputs of a page load
type LoadOptions struct {
	Query    string
	Expanded []int64
}

// Loader fetches the listing once, then every top-level status concurrently.
// Nothing is retried.
type Loader struct {
	backend     Backend
	reporter    ErrorReporter
	observer    PageObserver
	concurrency int
	logger      zerolog.Logger
}

func NewLoader(backend Backend, reporter ErrorReporter, observer PageObserver, concurrency int) *Loader {
	if concurrency <= 0 {
		concurrency = defaultStatusConcurrency
	}

	return &Loader{
		backend:     backend,
		reporter:    reporter,
		observer:    observer,
		concurrency: concurrency,
		logger:      log.Logger.With().Str("module", "dashboard").Logger(),
	}
}

// Load builds the page state for a viewer token. A listing failure returns an
// empty, failed state. Status results arriving after ctx is done are dropped.
func (l *Loader) Load(ctx context.Context, token string, opts LoadOptions) PageState {
	var state PageState

	entities, err := l.backend.ListContents(ctx, token)
	if err != nil {
		l.report(ctx, 0, models.OperationListContents, err)
		return Reduce(state, EntitiesFailed{Err: err})
	}

	state = Reduce(state, EntitiesLoaded{Entities: entities})
	state = Reduce(state, FilterApplied{Query: opts.Query})
	for _, id := range opts.Expanded {
		state = Reduce(state, ToggleFiles{ID: id})
	}

	state = l.loadStatuses(ctx, token, state)

	if l.observer != nil {
		l.observer.ObservePage(len(state.topLevel))
	}

	l.logger.Debug().
		Int("entities", len(entities)).
		Int("cards", len(state.topLevel)).
		Int("groups", len(state.groups)).
		Bool("tornDown", state.TornDown()).
		Msg("Deals page loaded")

	return state
}

// LoadCard builds a single card. Unlike Load it returns the fetch errors, since
// the caller asked for exactly this entity.
func (l *Loader) LoadCard(ctx context.Context, token string, id int64, showFiles bool) (CardView, error) {
	entities, err := l.backend.ListContents(ctx, token)
	if err != nil {
		l.report(ctx, 0, models.OperationListContents, err)
		return CardView{}, err
	}

	topLevel, groups := models.GroupContents(entities)
	if !slices.ContainsFunc(topLevel, func(e models.ContentEntity) bool { return e.ID == id }) {
		return CardView{}, ErrNotFound
	}

	status, err := l.backend.ContentStatus(ctx, token, id)
	if err != nil {
		l.report(ctx, id, models.OperationFetchStatus, err)
		return CardView{}, err
	}

	return BuildCard(id, status, groups, showFiles), nil
}

func (l *Loader) loadStatuses(ctx context.Context, token string, state PageState) PageState {
	ids := state.DisplayOrder()
	if len(ids) == 0 {
		return state
	}

	// Buffered for every id so workers never block once the page stops listening
	results := make(chan Event, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(l.concurrency)

	go func() {
		for _, id := range ids {
			g.Go(func() error {
				if ctx.Err() != nil {
					results <- StatusFailed{ID: id, Err: ctx.Err()}
					return nil
				}

				status, err := l.backend.ContentStatus(ctx, token, id)
				if err != nil {
					results <- StatusFailed{ID: id, Err: err}
					return nil
				}
				results <- StatusLoaded{ID: id, Status: status}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	for {
		select {
		case ev, ok := <-results:
			if ctx.Err() != nil {
				return Reduce(state, Unmounted{})
			}
			if !ok {
				return state
			}
			if failed, isFailure := ev.(StatusFailed); isFailure {
				l.report(ctx, failed.ID, models.OperationFetchStatus, failed.Err)
			}
			state = Reduce(state, ev)

		case <-ctx.Done():
			return Reduce(state, Unmounted{})
		}
	}
}

func (l *Loader) report(ctx context.Context, contentID int64, operation string, err error) {
	if l.reporter != nil {
		l.reporter.ReportFetchError(ctx, contentID, operation, err)
	}
}
