// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

// GroupsMap maps an aggregate's id to the files bundled into it, in fetch order.
// A map is built once per fetch and replaced wholesale on the next one.
type GroupsMap map[int64][]ContentEntity

// Children returns the files aggregated into id, or nil.
func (g GroupsMap) Children(id int64) []ContentEntity {
	if g == nil {
		return nil
	}
	return g[id]
}

// GroupContents splits a flat content listing into top-level entities and
// aggregate buckets in a single pass. Entities with a negative AggregatedIn
// belong nowhere and are dropped.
func GroupContents(entities []ContentEntity) ([]ContentEntity, GroupsMap) {
	topLevel := make([]ContentEntity, 0, len(entities))
	groups := make(GroupsMap)

	for _, item := range entities {
		switch {
		case item.AggregatedIn == 0:
			topLevel = append(topLevel, item)
		case item.AggregatedIn > 0:
			groups[item.AggregatedIn] = append(groups[item.AggregatedIn], item)
		}
	}

	return topLevel, groups
}
