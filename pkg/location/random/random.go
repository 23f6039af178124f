// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package random implements the location.Handler for the "random"
// scheme (spec.md §4.2): "random:dashed-name|name|int".
package random

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tplforge/tplforge/pkg/location"
)

// Handler generates random identifiers. It carries no state: each
// Fetch call produces a fresh value, since the spec does not require
// caching a generated value across references to the same location
// string within one transform.
type Handler struct{}

// New creates a random location.Handler.
func New() *Handler { return &Handler{} }

// Scheme implements location.Handler.
func (h *Handler) Scheme() location.Scheme { return location.SchemeRandom }

// Resolve implements location.Handler.
func (h *Handler) Resolve(_ context.Context, payload string, _ *location.Resolved) (*location.Resolved, error) {
	switch payload {
	case "dashed-name", "name", "int":
		return &location.Resolved{Scheme: location.SchemeRandom, Payload: payload}, nil
	default:
		return nil, fmt.Errorf("random: unknown generator %q, want dashed-name|name|int", payload)
	}
}

// Fetch implements location.Handler.
func (h *Handler) Fetch(_ context.Context, resolved *location.Resolved) ([]byte, error) {
	switch resolved.Payload {
	case "dashed-name":
		return []byte(uuid.NewString()), nil
	case "name":
		dashed := uuid.NewString()
		// Strips only the first dash, preserved as-is per the source
		// behaviour this scheme is grounded on.
		return []byte(strings.Replace(dashed, "-", "", 1)), nil
	case "int":
		n, err := rand.Int(rand.Reader, big.NewInt(999))
		if err != nil {
			return nil, fmt.Errorf("random: int: %w", err)
		}
		return []byte(strconv.FormatInt(n.Int64()+1, 10)), nil
	default:
		return nil, fmt.Errorf("random: unknown generator %q", resolved.Payload)
	}
}
