// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Error types for categorization
const (
	ErrorTypeConnection     = "connection"
	ErrorTypeAuthentication = "authentication"
	ErrorTypeDecode         = "decode"
	ErrorTypeAPI            = "api"
)

// Operations that can fail while building the deals page
const (
	OperationListContents = "list_contents"
	OperationFetchStatus  = "fetch_status"
)

// FetchError is one failed backend call. ContentID is zero for listing failures.
type FetchError struct {
	ID           int       `json:"id"`
	ContentID    int64     `json:"contentId"`
	Operation    string    `json:"operation"`
	ErrorType    string    `json:"errorType"`
	ErrorMessage string    `json:"errorMessage"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type FetchErrorStore struct {
	db *sql.DB
}

func NewFetchErrorStore(db *sql.DB) *FetchErrorStore {
	return &FetchErrorStore{
		db: db,
	}
}

// isContextError checks if an error is a standard context error that should be ignored
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// RecordError stores a failed fetch with simple deduplication
func (s *FetchErrorStore) RecordError(ctx context.Context, contentID int64, operation string, err error) error {
	// A viewer leaving the page cancels its fetches; that is not a backend failure
	if err == nil || isContextError(err) {
		return nil
	}

	errorType := categorizeError(err)
	errorMessage := err.Error()

	// Simple deduplication: check if same error was recorded in last minute
	var count int
	checkQuery := `SELECT COUNT(*) FROM fetch_errors
                   WHERE content_id = ? AND operation = ? AND error_type = ? AND error_message = ?
                   AND occurred_at > datetime('now', '-1 minute')`

	if err := s.db.QueryRowContext(ctx, checkQuery, contentID, operation, errorType, errorMessage).Scan(&count); err == nil && count > 0 {
		return nil // Skip duplicate
	}

	// Insert the error (trigger will handle cleanup of old errors)
	query := `INSERT INTO fetch_errors (content_id, operation, error_type, error_message)
              VALUES (?, ?, ?, ?)`
	_, execErr := s.db.ExecContext(ctx, query, contentID, operation, errorType, errorMessage)
	return execErr
}

// GetRecentErrors retrieves the last N errors for a content id
func (s *FetchErrorStore) GetRecentErrors(ctx context.Context, contentID int64, limit int) ([]FetchError, error) {
	query := `SELECT id, content_id, operation, error_type, error_message, occurred_at
              FROM fetch_errors
              WHERE content_id = ?
              ORDER BY occurred_at DESC, id DESC
              LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, contentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	errs := make([]FetchError, 0)
	for rows.Next() {
		var e FetchError
		if err := rows.Scan(&e.ID, &e.ContentID, &e.Operation, &e.ErrorType, &e.ErrorMessage, &e.OccurredAt); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// ClearErrors removes all errors for a content id (called after a successful fetch)
func (s *FetchErrorStore) ClearErrors(ctx context.Context, contentID int64) error {
	query := `DELETE FROM fetch_errors WHERE content_id = ?`
	_, err := s.db.ExecContext(ctx, query, contentID)
	return err
}

// categorizeError determines error type based on error message patterns
func categorizeError(err error) string {
	if err == nil {
		return ErrorTypeAPI
	}

	errorStr := strings.ToLower(err.Error())

	if strings.Contains(errorStr, "unauthorized") ||
		strings.Contains(errorStr, "401") ||
		strings.Contains(errorStr, "forbidden") ||
		strings.Contains(errorStr, "403") ||
		strings.Contains(errorStr, "token") {
		return ErrorTypeAuthentication
	}

	if strings.Contains(errorStr, "connection refused") ||
		strings.Contains(errorStr, "no such host") ||
		strings.Contains(errorStr, "network") ||
		strings.Contains(errorStr, "dial") ||
		strings.Contains(errorStr, "connect") {
		return ErrorTypeConnection
	}

	if strings.Contains(errorStr, "decode") ||
		strings.Contains(errorStr, "unmarshal") ||
		strings.Contains(errorStr, "invalid character") {
		return ErrorTypeDecode
	}

	// Default to API error for everything else
	return ErrorTypeAPI
}
