// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dashboard builds the deals page: it groups the viewer's content into
// aggregates, gathers per-entity deal status and shapes the result for rendering.
//
// Page state is an immutable PageState value. Every change goes through Reduce,
// which returns a new state and never mutates its input.
package dashboard

import (
	"maps"
	"slices"

	"github.com/autobrr/dealdash/internal/models"
)

// Event is anything that can change a PageState
type Event interface {
	isEvent()
}

// EntitiesLoaded carries the flat content listing
type EntitiesLoaded struct {
	Entities []models.ContentEntity
}

// EntitiesFailed ends the page load; the state stays empty
type EntitiesFailed struct {
	Err error
}

// FilterApplied narrows the top-level entities to those matching Query
type FilterApplied struct {
	Query string
}

// StatusLoaded merges one entity's deal detail into the page
type StatusLoaded struct {
	ID     int64
	Status *models.ContentStatus
}

// StatusFailed leaves the entity without deal detail
type StatusFailed struct {
	ID  int64
	Err error
}

// ToggleFiles flips the expanded file list of one card
type ToggleFiles struct {
	ID int64
}

// Unmounted marks the page as gone; later events are dropped
type Unmounted struct{}

func (EntitiesLoaded) isEvent() {}
func (EntitiesFailed) isEvent() {}
func (FilterApplied) isEvent()  {}
func (StatusLoaded) isEvent()   {}
func (StatusFailed) isEvent()   {}
func (ToggleFiles) isEvent()    {}
func (Unmounted) isEvent()      {}

// PageState is the full display state of one deals page
type PageState struct {
	loaded   bool
	failed   bool
	tornDown bool
	query    string

	topLevel  []models.ContentEntity
	groups    models.GroupsMap
	statuses  map[int64]*models.ContentStatus
	showFiles map[int64]bool
}

// Reduce applies ev to s and returns the resulting state
func Reduce(s PageState, ev Event) PageState {
	if s.tornDown {
		return s
	}

	switch e := ev.(type) {
	case EntitiesLoaded:
		topLevel, groups := models.GroupContents(e.Entities)
		return PageState{
			loaded:   true,
			topLevel: topLevel,
			groups:   groups,
		}

	case EntitiesFailed:
		return PageState{failed: true}

	case FilterApplied:
		if e.Query == "" {
			return s
		}
		s.query = e.Query
		s.topLevel = filterEntities(s.topLevel, s.groups, e.Query)
		return s

	case StatusLoaded:
		if e.Status == nil || !s.hasEntity(e.ID) {
			return s
		}
		statuses := maps.Clone(s.statuses)
		if statuses == nil {
			statuses = make(map[int64]*models.ContentStatus)
		}
		statuses[e.ID] = e.Status
		s.statuses = statuses
		return s

	case StatusFailed:
		return s

	case ToggleFiles:
		showFiles := maps.Clone(s.showFiles)
		if showFiles == nil {
			showFiles = make(map[int64]bool)
		}
		if showFiles[e.ID] {
			delete(showFiles, e.ID)
		} else {
			showFiles[e.ID] = true
		}
		s.showFiles = showFiles
		return s

	case Unmounted:
		s.tornDown = true
		return s
	}

	return s
}

// Loaded reports whether the content listing arrived
func (s PageState) Loaded() bool { return s.loaded }

// Failed reports whether the content listing could not be fetched
func (s PageState) Failed() bool { return s.failed }

// TornDown reports whether the page stopped accepting events
func (s PageState) TornDown() bool { return s.tornDown }

// Query is the active name filter, if any
func (s PageState) Query() string { return s.query }

// TopLevel returns the top-level entities in fetch order
func (s PageState) TopLevel() []models.ContentEntity { return slices.Clone(s.topLevel) }

// Groups returns the aggregate buckets. Callers must not modify it.
func (s PageState) Groups() models.GroupsMap { return s.groups }

// Status returns the loaded deal detail for id, or nil
func (s PageState) Status(id int64) *models.ContentStatus { return s.statuses[id] }

// ShowFiles reports whether the file list of id is expanded
func (s PageState) ShowFiles(id int64) bool { return s.showFiles[id] }

// DisplayOrder lists the top-level ids newest first
func (s PageState) DisplayOrder() []int64 {
	ids := make([]int64, 0, len(s.topLevel))
	for i := len(s.topLevel) - 1; i >= 0; i-- {
		ids = append(ids, s.topLevel[i].ID)
	}
	return ids
}

func (s PageState) hasEntity(id int64) bool {
	return slices.ContainsFunc(s.topLevel, func(e models.ContentEntity) bool {
		return e.ID == id
	})
}
