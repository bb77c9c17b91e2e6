// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dashboard

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/autobrr/dealdash/internal/models"
)

// filterEntities keeps top-level entities whose name, CID, or any aggregated
// file's name matches query. The input slice is left untouched.
func filterEntities(topLevel []models.ContentEntity, groups models.GroupsMap, query string) []models.ContentEntity {
	query = strings.TrimSpace(query)
	if query == "" {
		return topLevel
	}

	out := make([]models.ContentEntity, 0, len(topLevel))
	for _, entity := range topLevel {
		if matchesEntity(query, entity) {
			out = append(out, entity)
			continue
		}
		for _, child := range groups.Children(entity.ID) {
			if matchesEntity(query, child) {
				out = append(out, entity)
				break
			}
		}
	}
	return out
}

func matchesEntity(query string, entity models.ContentEntity) bool {
	if entity.CID != "" && strings.EqualFold(query, entity.CID) {
		return true
	}
	return fuzzy.MatchNormalizedFold(query, entity.Name)
}
