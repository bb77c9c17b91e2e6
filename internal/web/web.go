// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/autobrr/dealdash/internal/dashboard"
)

//go:embed templates/*.html
var templatesFS embed.FS

// UploadURL is where the "Upload data" action points
const UploadURL = "/upload"

// DealsData feeds templates/deals.html
type DealsData struct {
	dashboard.PageView

	BaseURL    string
	UploadURL  string
	ToggleURLs map[int64]string
}

// SignInData feeds templates/sign_in.html
type SignInData struct {
	BaseURL string
	Error   string
}

type Renderer struct {
	deals  *template.Template
	signIn *template.Template
}

func NewRenderer() (*Renderer, error) {
	deals, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/deals.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse deals template: %w", err)
	}

	signIn, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/sign_in.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse sign-in template: %w", err)
	}

	return &Renderer{deals: deals, signIn: signIn}, nil
}

// NewDealsData wraps a page with the links the template needs. expanded is the
// current ?show= list; every card gets a link with its own id flipped.
func NewDealsData(page dashboard.PageView, baseURL string, expanded []int64) DealsData {
	data := DealsData{
		PageView:   page,
		BaseURL:    baseURL,
		UploadURL:  UploadURL,
		ToggleURLs: make(map[int64]string, len(page.Cards)),
	}

	for _, card := range page.Cards {
		if card.ShowToggle {
			data.ToggleURLs[card.ID] = ToggleURL(baseURL, page.Query, expanded, card.ID)
		}
	}

	return data
}

// ToggleURL builds the deals page link that flips id in the expanded set
func ToggleURL(baseURL, query string, expanded []int64, id int64) string {
	next := slices.DeleteFunc(slices.Clone(expanded), func(e int64) bool { return e == id })
	if len(next) == len(expanded) {
		next = append(next, id)
	}
	slices.Sort(next)
	next = slices.Compact(next)

	values := url.Values{}
	if query != "" {
		values.Set("q", query)
	}
	for _, e := range next {
		values.Add("show", strconv.FormatInt(e, 10))
	}

	target := baseURL + "deals"
	if encoded := values.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target + "#card-" + strconv.FormatInt(id, 10)
}

func (r *Renderer) RenderDeals(w http.ResponseWriter, status int, data DealsData) error {
	return render(w, status, r.deals, data)
}

func (r *Renderer) RenderSignIn(w http.ResponseWriter, status int, data SignInData) error {
	return render(w, status, r.signIn, data)
}

// render executes into a buffer first so a template error never leaves a half-written page
func render(w http.ResponseWriter, status int, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
