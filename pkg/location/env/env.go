// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package env implements the location.Handler for the "env" scheme
// (spec.md §4.2): "env:NAME[:default]"; a missing variable with no
// default is an error.
package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tplforge/tplforge/pkg/location"
)

// Handler resolves and reads environment variables.
type Handler struct{}

// New creates an env location.Handler.
func New() *Handler { return &Handler{} }

// Scheme implements location.Handler.
func (h *Handler) Scheme() location.Scheme { return location.SchemeEnv }

// Resolve implements location.Handler. The resolved payload retains
// the "NAME[:default]" identity (never the variable's value) so
// diagnostics and ImportRecord.Imported never leak secret content.
func (h *Handler) Resolve(_ context.Context, payload string, _ *location.Resolved) (*location.Resolved, error) {
	if payload == "" {
		return nil, fmt.Errorf("env: empty variable name")
	}
	return &location.Resolved{Scheme: location.SchemeEnv, Payload: payload}, nil
}

// Fetch implements location.Handler.
func (h *Handler) Fetch(_ context.Context, resolved *location.Resolved) ([]byte, error) {
	// NAME[:default] — the default value may itself contain colons, so
	// split only once.
	payload := resolved.Payload
	name, hasDefault, def := payload, false, ""
	if idx := strings.Index(payload, ":"); idx >= 0 {
		name, def, hasDefault = payload[:idx], payload[idx+1:], true
	}
	value, ok := os.LookupEnv(name)
	if !ok {
		if !hasDefault {
			return nil, fmt.Errorf("env: variable %q is not set and has no default", name)
		}
		value = def
	}
	return []byte(value), nil
}
