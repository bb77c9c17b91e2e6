// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package estuary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/dealdash/internal/buildinfo"
	"github.com/autobrr/dealdash/internal/domain"
	"github.com/autobrr/dealdash/internal/models"
)

var (
	// ErrAPI is returned when the backend answers with an error payload or a non-2xx status
	ErrAPI = errors.New("estuary api error")
	// ErrUnauthorized is returned when the backend rejects the viewer's token
	ErrUnauthorized = errors.New("estuary api: unauthorized")
	// ErrEmptyResponse is returned for a null or empty body
	ErrEmptyResponse = errors.New("estuary api: empty response")
)

const (
	EndpointContentDeals  = "content_deals"
	EndpointContentStatus = "content_status"
	EndpointViewer        = "viewer"

	maxResponseBytes = 32 << 20
)

// Observer receives one call per completed backend request
type Observer interface {
	ObserveBackendRequest(endpoint, outcome string, elapsed time.Duration)
}

// Client talks to the storage backend API on behalf of a viewer. It never retries.
type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
	logger   zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, observer Observer) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout

	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     httpClient,
		observer: observer,
		logger:   log.Logger.With().Str("module", "estuary").Logger(),
	}
}

// ListContents fetches every content entity owned by the viewer, in backend order
func (c *Client) ListContents(ctx context.Context, token string) ([]models.ContentEntity, error) {
	var contents []models.ContentEntity
	if err := c.getJSON(ctx, token, EndpointContentDeals, "/content/deals", &contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// ContentStatus fetches the deal detail for a single content id
func (c *Client) ContentStatus(ctx context.Context, token string, id int64) (*models.ContentStatus, error) {
	var status models.ContentStatus
	if err := c.getJSON(ctx, token, EndpointContentStatus, fmt.Sprintf("/content/status/%d", id), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Viewer resolves the account a token belongs to
func (c *Client) Viewer(ctx context.Context, token string) (*models.Viewer, error) {
	var viewer models.Viewer
	if err := c.getJSON(ctx, token, EndpointViewer, "/viewer", &viewer); err != nil {
		return nil, err
	}
	viewer.Token = token
	return &viewer, nil
}

func (c *Client) getJSON(ctx context.Context, token, endpoint, path string, out any) error {
	start := time.Now()
	err := c.doGetJSON(ctx, token, path, out)

	if c.observer != nil {
		c.observer.ObserveBackendRequest(endpoint, outcome(err), time.Since(start))
	}

	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("path", path).
			Str("token", domain.RedactString(token)).
			Dur("elapsed", time.Since(start)).
			Msg("Backend request failed")
	}

	return err
}

func (c *Client) doGetJSON(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to send request to %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}

	if msg, ok := errorPayload(body); ok {
		return errors.Wrapf(ErrAPI, "%s: %s", path, msg)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrapf(ErrAPI, "%s: unexpected status code %d", path, resp.StatusCode)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}

	return nil
}

// errorPayload reports whether body is an object carrying an "error" field.
// The backend uses both a plain string and a {code, reason, details} object.
func errorPayload(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || len(envelope.Error) == 0 {
		return "", false
	}

	raw := bytes.TrimSpace(envelope.Error)
	if bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return "", false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, true
	}

	var detailed struct {
		Code    int    `json:"code"`
		Reason  string `json:"reason"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &detailed); err == nil {
		switch {
		case detailed.Details != "":
			return detailed.Details, true
		case detailed.Reason != "":
			return detailed.Reason, true
		}
	}

	return string(raw), true
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAPI), errors.Is(err, ErrEmptyResponse):
		return "api_error"
	default:
		return "transport_error"
	}
}
