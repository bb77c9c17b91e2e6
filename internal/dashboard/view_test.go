// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dashboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autobrr/dealdash/internal/models"
)

const sampleCIDv1 = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"
const sampleCIDv0 = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func groupOf(parent int64, n int) models.GroupsMap {
	files := make([]models.ContentEntity, 0, n)
	for i := range n {
		files = append(files, models.ContentEntity{
			ID:           parent*100 + int64(i),
			Name:         fmt.Sprintf("file-%d.bin", i),
			Size:         1024,
			CID:          fmt.Sprintf("bafychild%d", i),
			AggregatedIn: parent,
		})
	}
	return models.GroupsMap{parent: files}
}

func TestPluralize(t *testing.T) {
	require.Equal(t, "file", Pluralize("file", 1))
	require.Equal(t, "files", Pluralize("file", 0))
	require.Equal(t, "files", Pluralize("file", 2))
	require.Equal(t, "deals", Pluralize("deal", 12))
}

func TestBuildCardTruncatesFiles(t *testing.T) {
	groups := groupOf(1, 12)

	collapsed := BuildCard(1, nil, groups, false)
	require.Len(t, collapsed.Files, 9)
	require.Equal(t, 3, collapsed.HiddenCount)
	require.Equal(t, 12, collapsed.TotalFiles)
	require.True(t, collapsed.ShowToggle)
	require.Equal(t, "3 files were not shown", collapsed.FilesLabel)
	require.Equal(t, "(show files)", collapsed.ToggleLabel)
	require.Equal(t, "file-0.bin", collapsed.Files[0].Name)
	require.Equal(t, "file-8.bin", collapsed.Files[8].Name)

	expanded := BuildCard(1, nil, groups, true)
	require.Len(t, expanded.Files, 12)
	require.Zero(t, expanded.HiddenCount)
	require.True(t, expanded.ShowToggle)
	require.Equal(t, "Showing all 12 files", expanded.FilesLabel)
	require.Equal(t, "(hide files)", expanded.ToggleLabel)
}

func TestBuildCardHiddenCountProperty(t *testing.T) {
	for n := 0; n <= 20; n++ {
		groups := groupOf(7, n)
		for _, showFiles := range []bool{false, true} {
			card := BuildCard(7, nil, groups, showFiles)

			visible := n
			if !showFiles {
				visible = min(FilesPreviewLimit, n)
			}
			require.Equalf(t, max(0, n-visible), card.HiddenCount, "n=%d showFiles=%v", n, showFiles)
			require.Lenf(t, card.Files, visible, "n=%d showFiles=%v", n, showFiles)
			require.Equalf(t, n > FilesPreviewLimit, card.ShowToggle, "n=%d", n)
			if !card.ShowToggle {
				require.Empty(t, card.FilesLabel)
				require.Empty(t, card.ToggleLabel)
			}
		}
	}
}

func TestBuildCardSingleHiddenFile(t *testing.T) {
	card := BuildCard(3, nil, groupOf(3, 10), false)
	require.Equal(t, "1 file were not shown", card.FilesLabel)
}

func TestBuildCardWithoutStatus(t *testing.T) {
	card := BuildCard(42, nil, nil, false)

	require.Equal(t, "...", card.Name)
	require.Empty(t, card.RetrievalURL)
	require.Empty(t, card.Size)
	require.Empty(t, card.Files)
	require.False(t, card.ShowToggle)
	require.Equal(t, "/errors/42", card.DealLogURL)
	require.Equal(t, "0 Storage provider deals", card.DealsLabel)
	require.Equal(t, EmptyDealsMessage, card.EmptyMessage)
}

func TestBuildCardAggregate(t *testing.T) {
	status := &models.ContentStatus{
		Content: &models.ContentEntity{ID: 1, Name: "aggregate", Size: 3 << 20, CID: sampleCIDv1},
	}

	card := BuildCard(1, status, groupOf(1, 2), false)
	require.Equal(t, "/", card.Name)
	require.True(t, card.IsAggregate)
	require.Equal(t, "https://dweb.link/ipfs/"+sampleCIDv1, card.RetrievalURL)
	require.Equal(t, "v1", card.CIDVersion)
	require.Equal(t, "3.0 MiB", card.Size)
	require.Len(t, card.Files, 2)
	require.Equal(t, "https://dweb.link/ipfs/bafychild0", card.Files[0].RetrievalURL)
	require.Equal(t, "1.0 KiB", card.Files[0].Size)
}

func TestBuildCardNamesAndCIDs(t *testing.T) {
	unnamed := BuildCard(2, &models.ContentStatus{Content: &models.ContentEntity{CID: sampleCIDv0}}, nil, false)
	require.Equal(t, "...", unnamed.Name)
	require.Equal(t, "v0", unnamed.CIDVersion)
	require.False(t, unnamed.IsAggregate)

	invalid := BuildCard(2, &models.ContentStatus{Content: &models.ContentEntity{Name: "x", CID: "not-a-cid"}}, nil, false)
	require.Empty(t, invalid.CIDVersion)
	require.Equal(t, "https://dweb.link/ipfs/not-a-cid", invalid.RetrievalURL)
}

func TestBuildCardDeals(t *testing.T) {
	status := &models.ContentStatus{
		Content: &models.ContentEntity{ID: 9, Name: "movie.mp4", Size: 10},
		Deals: []models.DealRecord{
			{ID: 1, Deal: &models.Deal{ID: 1, Miner: "f01", Failed: true}},
			{ID: 2, Deal: &models.Deal{ID: 2, Miner: "f02", DealID: 55}, OnChainState: &models.OnChainState{SectorStartEpoch: 10}},
			{ID: 3, Deal: &models.Deal{ID: 3, Miner: "f03", DealID: 56}},
			{ID: 4, Deal: &models.Deal{ID: 4, Miner: "f04"}, Transfer: &models.TransferState{Message: "sending"}},
			{ID: 5, Deal: &models.Deal{ID: 5, Miner: "f05"}},
			{ID: 6, OnChainState: &models.OnChainState{SectorStartEpoch: 10, SlashEpoch: 20}},
		},
	}

	card := BuildCard(9, status, nil, false)
	require.Equal(t, "6 Storage provider deals", card.DealsLabel)
	require.Empty(t, card.EmptyMessage)

	states := make([]string, 0, len(card.Deals))
	for _, d := range card.Deals {
		states = append(states, d.State)
	}
	require.Equal(t, []string{"Failed", "Active", "Published", "Transferring", "Proposed", "Slashed"}, states)
	require.Equal(t, "sending", card.Deals[3].Transfer)
	require.Equal(t, int64(55), card.Deals[1].DealID)

	single := BuildCard(9, &models.ContentStatus{Deals: status.Deals[:1]}, nil, false)
	require.Equal(t, "1 Storage provider deal", single.DealsLabel)
}

func TestBuildPageOrderAndMetadata(t *testing.T) {
	state := Reduce(PageState{}, EntitiesLoaded{Entities: sampleEntities()})
	state = Reduce(state, StatusLoaded{ID: 5, Status: &models.ContentStatus{Content: &models.ContentEntity{ID: 5, Name: "holiday.jpg"}}})

	viewer := &models.Viewer{ID: 1, Username: "alice"}
	page := BuildPage(state, viewer)

	require.Equal(t, "Estuary: Deals", page.Title)
	require.Equal(t, "Check the status of your Filecoin storage deals", page.Description)
	require.Same(t, viewer, page.Viewer)
	require.False(t, page.LoadFailed)
	require.Len(t, page.Cards, 2)
	require.Equal(t, int64(5), page.Cards[0].ID)
	require.Equal(t, "holiday.jpg", page.Cards[0].Name)
	require.Equal(t, int64(1), page.Cards[1].ID)
	require.Equal(t, "...", page.Cards[1].Name)
	require.Len(t, page.Cards[1].Files, 2)
}

func TestBuildPageFailed(t *testing.T) {
	page := BuildPage(Reduce(PageState{}, EntitiesFailed{}), nil)
	require.True(t, page.LoadFailed)
	require.Empty(t, page.Cards)
	require.NotNil(t, page.Cards)
}
