// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

const (
	SessionName = "dealdash_session"

	tokenValueKey  = "token"
	sessionMaxAge  = 30 * 24 * 60 * 60
	keyDerivation  = "dealdash session cookie keys"
	hashKeyLength  = 64
	blockKeyLength = 32
)

var ErrNoToken = errors.New("no api token in session")

// Sessions keeps the viewer's API token in a signed and encrypted cookie
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions derives the cookie hash and block keys from secret
func NewSessions(secret string, secure bool) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}

	hashKey, blockKey, err := deriveKeys(secret)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(sessionMaxAge)

	return &Sessions{store: store}, nil
}

func deriveKeys(secret string) ([]byte, []byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyDerivation))

	hashKey := make([]byte, hashKeyLength)
	if _, err := io.ReadFull(r, hashKey); err != nil {
		return nil, nil, fmt.Errorf("failed to derive session hash key: %w", err)
	}
	blockKey := make([]byte, blockKeyLength)
	if _, err := io.ReadFull(r, blockKey); err != nil {
		return nil, nil, fmt.Errorf("failed to derive session block key: %w", err)
	}

	return hashKey, blockKey, nil
}

// Token returns the API token stored for this request.
// A missing, expired or tampered cookie yields ErrNoToken.
func (s *Sessions) Token(r *http.Request) (string, error) {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		return "", ErrNoToken
	}

	token, _ := session.Values[tokenValueKey].(string)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SetToken stores token and writes the cookie
func (s *Sessions) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	// a broken cookie still returns a usable fresh session
	session, _ := s.store.Get(r, SessionName)
	session.Values[tokenValueKey] = token
	session.Options.MaxAge = sessionMaxAge

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear expires the session cookie
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	delete(session.Values, tokenValueKey)
	session.Options.MaxAge = -1

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
