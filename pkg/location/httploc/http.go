// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package httploc implements the location.Handler for the "http"
// scheme (spec.md §4.2): a GET of the URL, body is the raw data.
// Named httploc (not http) to avoid shadowing net/http in importers.
package httploc

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tplforge/tplforge/pkg/location"
)

// Client is the narrow seam over *http.Client the teacher's
// util/httpclient.Client interface also uses.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// Handler resolves and fetches http URLs; Fetch always requests the
// "http:" form of the payload, so https URLs are not served here.
type Handler struct {
	client Client
}

// New builds an http location.Handler using http.DefaultClient.
func New() *Handler { return &Handler{client: http.DefaultClient} }

// NewWithClient builds an http location.Handler around a caller
// supplied client — the test seam.
func NewWithClient(c Client) *Handler { return &Handler{client: c} }

// Scheme implements location.Handler.
func (h *Handler) Scheme() location.Scheme { return location.SchemeHTTP }

// Resolve implements location.Handler. The payload is the URL after
// the "http:" scheme prefix was stripped by location.Parse, so a full
// URL of the form "http://host/path" arrives here as "//host/path";
// Resolve reattaches the scheme to rebuild an absolute URL.
func (h *Handler) Resolve(_ context.Context, payload string, base *location.Resolved) (*location.Resolved, error) {
	p, format := location.SplitFormatSuffix(payload)
	url := "http:" + p
	if format == "" {
		format = location.FormatFromExtension(p)
	}
	return &location.Resolved{Scheme: location.SchemeHTTP, Payload: stripScheme(url), Format: format}, nil
}

func stripScheme(url string) string {
	// Resolved.String() reprepends "http:"; keep only what follows.
	const prefix = "http:"
	if len(url) >= len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):]
	}
	return url
}

// Fetch implements location.Handler.
func (h *Handler) Fetch(ctx context.Context, resolved *location.Resolved) ([]byte, error) {
	url := "http:" + resolved.Payload
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("http: build request for %s: %w", url, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http: GET %s: status %d", url, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http: read body of %s: %w", url, err)
	}
	return b, nil
}
