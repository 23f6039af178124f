// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package file implements the location.Handler for the "file" scheme
// (spec.md §4.2): paths resolved relative to the base's directory,
// with "~" expanded to the user's home.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tplforge/tplforge/pkg/location"
)

// Handler resolves and reads filesystem paths.
type Handler struct{}

// New creates a file location.Handler.
func New() *Handler { return &Handler{} }

// Scheme implements location.Handler.
func (h *Handler) Scheme() location.Scheme { return location.SchemeFile }

// Resolve implements location.Handler.
func (h *Handler) Resolve(_ context.Context, payload string, base *location.Resolved) (*location.Resolved, error) {
	p, format := location.SplitFormatSuffix(payload)
	p = expandHome(p)

	if !filepath.IsAbs(p) && base != nil && base.Scheme == location.SchemeFile {
		p = filepath.Join(filepath.Dir(base.Payload), p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	if format == "" {
		format = location.FormatFromExtension(abs)
	}
	return &location.Resolved{Scheme: location.SchemeFile, Payload: abs, Format: format}, nil
}

// Fetch implements location.Handler.
func (h *Handler) Fetch(_ context.Context, resolved *location.Resolved) ([]byte, error) {
	b, err := os.ReadFile(resolved.Payload)
	if err != nil {
		return nil, fmt.Errorf("file: read %s: %w", resolved.Payload, err)
	}
	return b, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		if p == "~" {
			return home
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~/"))
	}
	return p
}
