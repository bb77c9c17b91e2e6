// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"errors"
	"time"
)

var ErrNoViewer = errors.New("no viewer in context")

// Viewer is the signed-in account, as reported by the backend
type Viewer struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Perms      int       `json:"perms"`
	Address    string    `json:"address,omitempty"`
	AuthExpiry time.Time `json:"auth_expiry,omitzero"`

	// Token is the API token the viewer signed in with. Never serialized.
	Token string `json:"-"`
}

type viewerContextKey struct{}

// WithViewer stores v on the context
func WithViewer(ctx context.Context, v *Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey{}, v)
}

// ViewerFromContext returns the viewer placed by the auth middleware
func ViewerFromContext(ctx context.Context) (*Viewer, error) {
	v, ok := ctx.Value(viewerContextKey{}).(*Viewer)
	if !ok || v == nil {
		return nil, ErrNoViewer
	}
	return v, nil
}
