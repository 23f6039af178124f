// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package literal implements the location.Handler for the "literal"
// scheme (spec.md §4.2): "literal:text" yields text verbatim. Marked
// deprecated by the spec; every resolution logs a warning pointing
// callers at $string instead.
package literal

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/tplforge/tplforge/pkg/location"
)

// Handler returns its payload text unchanged.
type Handler struct{}

// New creates a literal location.Handler.
func New() *Handler { return &Handler{} }

// Scheme implements location.Handler.
func (h *Handler) Scheme() location.Scheme { return location.SchemeLiteral }

// Resolve implements location.Handler.
func (h *Handler) Resolve(_ context.Context, payload string, _ *location.Resolved) (*location.Resolved, error) {
	klog.Warningf("literal: scheme is deprecated, use $string instead (payload %q)", payload)
	return &location.Resolved{Scheme: location.SchemeLiteral, Payload: payload}, nil
}

// Fetch implements location.Handler.
func (h *Handler) Fetch(_ context.Context, resolved *location.Resolved) ([]byte, error) {
	return []byte(resolved.Payload), nil
}
