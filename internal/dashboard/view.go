// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dashboard

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/ipfs/go-cid"

	"github.com/autobrr/dealdash/internal/models"
)

const (
	// FilesPreviewLimit is how many aggregated files a collapsed card lists
	FilesPreviewLimit = 9

	PageTitle       = "Estuary: Deals"
	PageDescription = "Check the status of your Filecoin storage deals"
	PageURL         = "https://estuary.tech/deals"

	EmptyDealsMessage = "Estuary has not peformed any deals for this file, yet."

	aggregateName = "aggregate"
	rootName      = "/"
	unknownName   = "..."
)

// RetrievalURL is the public gateway link for a CID
func RetrievalURL(c string) string {
	return "https://dweb.link/ipfs/" + c
}

// DealLogURL points at the deal error log of a content id
func DealLogURL(id int64) string {
	return fmt.Sprintf("/errors/%d", id)
}

// Pluralize appends an "s" unless count is exactly one
func Pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// FileRow is one aggregated file under a card
type FileRow struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CID          string `json:"cid"`
	RetrievalURL string `json:"retrievalUrl"`
	Size         string `json:"size"`
}

// DealRow summarizes one storage provider deal
type DealRow struct {
	ID       int64  `json:"id"`
	Miner    string `json:"miner"`
	DealID   int64  `json:"dealId"`
	State    string `json:"state"`
	Transfer string `json:"transfer,omitempty"`
	Verified bool   `json:"verified"`
}

// CardView is everything needed to render one top-level entity
type CardView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CID          string `json:"cid,omitempty"`
	CIDVersion   string `json:"cidVersion,omitempty"`
	RetrievalURL string `json:"retrievalUrl,omitempty"`
	Size         string `json:"size,omitempty"`
	IsAggregate  bool   `json:"isAggregate"`

	Files       []FileRow `json:"files"`
	TotalFiles  int       `json:"totalFiles"`
	HiddenCount int       `json:"hiddenCount"`
	ShowFiles   bool      `json:"showFiles"`
	ShowToggle  bool      `json:"showToggle"`
	FilesLabel  string    `json:"filesLabel,omitempty"`
	ToggleLabel string    `json:"toggleLabel,omitempty"`

	Deals        []DealRow `json:"deals"`
	DealsLabel   string    `json:"dealsLabel"`
	DealLogURL   string    `json:"dealLogUrl"`
	EmptyMessage string    `json:"emptyMessage,omitempty"`
}

// BuildCard shapes one entity. status may be nil while it is still loading or
// after its fetch failed; the card then shows placeholders instead of failing.
func BuildCard(id int64, status *models.ContentStatus, groups models.GroupsMap, showFiles bool) CardView {
	card := CardView{
		ID:         id,
		Name:       unknownName,
		ShowFiles:  showFiles,
		DealLogURL: DealLogURL(id),
	}

	var content *models.ContentEntity
	var deals []models.DealRecord
	if status != nil {
		content = status.Content
		deals = status.Deals
	}

	if content != nil {
		if content.Name != "" {
			card.Name = content.Name
		}
		card.CID = content.CID
		card.CIDVersion = cidVersion(content.CID)
		card.RetrievalURL = RetrievalURL(content.CID)
		card.Size = humanize.IBytes(uint64(max(content.Size, 0)))
	}
	if card.Name == aggregateName {
		card.Name = rootName
	}
	card.IsAggregate = card.Name == rootName

	subfiles := groups.Children(id)
	visible, hidden := truncateFiles(subfiles, showFiles)

	card.TotalFiles = len(subfiles)
	card.HiddenCount = hidden
	card.ShowToggle = len(subfiles) > FilesPreviewLimit
	card.Files = make([]FileRow, 0, len(visible))
	for _, each := range visible {
		card.Files = append(card.Files, FileRow{
			ID:           each.ID,
			Name:         each.Name,
			CID:          each.CID,
			RetrievalURL: RetrievalURL(each.CID),
			Size:         humanize.IBytes(uint64(max(each.Size, 0))),
		})
	}

	if card.ShowToggle {
		if showFiles {
			card.FilesLabel = fmt.Sprintf("Showing all %d %s", len(subfiles), Pluralize("file", len(subfiles)))
			card.ToggleLabel = "(hide files)"
		} else {
			card.FilesLabel = fmt.Sprintf("%d %s were not shown", hidden, Pluralize("file", hidden))
			card.ToggleLabel = "(show files)"
		}
	}

	card.Deals = make([]DealRow, 0, len(deals))
	for _, d := range deals {
		card.Deals = append(card.Deals, buildDealRow(d))
	}
	if len(card.Deals) == 0 {
		card.EmptyMessage = EmptyDealsMessage
	}
	card.DealsLabel = fmt.Sprintf("%d Storage provider %s", len(card.Deals), Pluralize("deal", len(card.Deals)))

	return card
}

// truncateFiles returns the visible slice and how many files it leaves out
func truncateFiles(files []models.ContentEntity, showFiles bool) ([]models.ContentEntity, int) {
	if showFiles {
		return files, 0
	}
	visible := files[:min(FilesPreviewLimit, len(files))]
	return visible, len(files) - len(visible)
}

func buildDealRow(rec models.DealRecord) DealRow {
	row := DealRow{ID: rec.ID, State: dealState(rec)}
	if rec.Deal != nil {
		row.Miner = rec.Deal.Miner
		row.DealID = rec.Deal.DealID
		row.Verified = rec.Deal.Verified
	}
	if rec.Transfer != nil {
		row.Transfer = rec.Transfer.StatusMessage
		if row.Transfer == "" {
			row.Transfer = rec.Transfer.Message
		}
	}
	return row
}

func dealState(rec models.DealRecord) string {
	switch {
	case rec.Deal != nil && rec.Deal.Failed:
		return "Failed"
	case rec.OnChainState != nil && rec.OnChainState.SlashEpoch > 0:
		return "Slashed"
	case rec.OnChainState != nil && rec.OnChainState.SectorStartEpoch > 0:
		return "Active"
	case rec.Deal != nil && rec.Deal.DealID > 0:
		return "Published"
	case rec.Transfer != nil:
		return "Transferring"
	default:
		return "Proposed"
	}
}

// cidVersion reports "v0" or "v1" for a parseable CID and "" otherwise
func cidVersion(s string) string {
	if s == "" {
		return ""
	}
	c, err := cid.Decode(s)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("v%d", c.Version())
}

// PageView is the rendered page: metadata plus cards newest first
type PageView struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	Viewer      *models.Viewer `json:"viewer,omitempty"`
	Query       string         `json:"query,omitempty"`
	LoadFailed  bool           `json:"loadFailed"`
	Cards       []CardView     `json:"cards"`
}

// BuildPage shapes the whole page from a state
func BuildPage(s PageState, viewer *models.Viewer) PageView {
	page := PageView{
		Title:       PageTitle,
		Description: PageDescription,
		URL:         PageURL,
		Viewer:      viewer,
		Query:       s.Query(),
		LoadFailed:  s.Failed(),
	}

	order := s.DisplayOrder()
	page.Cards = make([]CardView, 0, len(order))
	for _, id := range order {
		page.Cards = append(page.Cards, BuildCard(id, s.Status(id), s.Groups(), s.ShowFiles(id)))
	}

	return page
}
