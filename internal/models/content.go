// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import "time"

// ContentEntity is one unit of uploaded data, either an aggregate or an individual file.
// AggregatedIn is zero for top-level content and the parent's id for files bundled into an aggregate.
type ContentEntity struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	CID          string    `json:"cid"`
	AggregatedIn int64     `json:"aggregatedIn,omitempty"`
	Active       bool      `json:"active,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

// Deal is a storage provider agreement for one piece of content
type Deal struct {
	ID       int64  `json:"ID"`
	Content  int64  `json:"content"`
	PropCID  string `json:"propCid,omitempty"`
	Miner    string `json:"miner"`
	DealID   int64  `json:"dealId"`
	Failed   bool   `json:"failed"`
	Verified bool   `json:"verified"`
	FailedAt string `json:"failedAt,omitempty"`
}

// OnChainState is the deal state as last observed on chain
type OnChainState struct {
	SectorStartEpoch int64 `json:"sectorStartEpoch"`
	LastUpdatedEpoch int64 `json:"lastUpdatedEpoch"`
	SlashEpoch       int64 `json:"slashEpoch"`
}

// TransferState is the data transfer channel state towards the provider
type TransferState struct {
	TransferID    string `json:"transferId,omitempty"`
	Status        int    `json:"status"`
	StatusMessage string `json:"statusMessage,omitempty"`
	Message       string `json:"message,omitempty"`
	Sent          uint64 `json:"sent"`
	Received      uint64 `json:"received"`
}

// DealRecord ties a deal to its chain and transfer state
type DealRecord struct {
	ID           int64          `json:"ID"`
	Deal         *Deal          `json:"deal,omitempty"`
	OnChainState *OnChainState  `json:"onChainState,omitempty"`
	Transfer     *TransferState `json:"transfer,omitempty"`
}

// ContentStatus is the per-entity detail returned by the status endpoint
type ContentStatus struct {
	Content       *ContentEntity `json:"content,omitempty"`
	Deals         []DealRecord   `json:"deals"`
	FailuresCount int            `json:"failuresCount"`
}
