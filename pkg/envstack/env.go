// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package envstack implements the evaluator's environment frame
// (spec.md §3 "Environment"): the active `$envValues` scope plus the
// diagnostic (location, path) frame and the active name-rewriting
// Prefix. Split out of pkg/transform/pkg/template so both can share
// the type without an import cycle (the evaluator delegates into the
// template expander, which calls back into the evaluator).
package envstack

import "github.com/tplforge/tplforge/pkg/document"

// Env is one immutable evaluation frame. Sub-environments are built by
// copy-on-extend (spec.md §5) — every method here returns a new Env,
// never mutating the receiver, so a frame can be safely shared across
// the sibling branches that were built from it.
type Env struct {
	Values   map[string]*document.Document
	Prefix   string
	Location string
	Path     string
}

// New builds the root Env for a transform rooted at location.
func New(location string) *Env {
	return &Env{Values: map[string]*document.Document{}, Location: location}
}

// Extend returns a new Env whose Values is the receiver's Values
// overlaid with values (values wins on key collision).
func (e *Env) Extend(values map[string]*document.Document) *Env {
	merged := make(map[string]*document.Document, len(e.Values)+len(values))
	for k, v := range e.Values {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	return &Env{Values: merged, Prefix: e.Prefix, Location: e.Location, Path: e.Path}
}

// WithPrefix returns a new Env with Prefix replaced.
func (e *Env) WithPrefix(prefix string) *Env {
	c := *e
	c.Prefix = prefix
	return &c
}

// WithLocation returns a new Env with Location replaced (entering an
// imported document, spec.md §4.4 "Imported-document re-entry").
func (e *Env) WithLocation(location string) *Env {
	c := *e
	c.Location = location
	return &c
}

// WithPath returns a new Env with seg appended to the dotted
// diagnostic path.
func (e *Env) WithPath(seg string) *Env {
	c := *e
	if c.Path == "" {
		c.Path = seg
	} else {
		c.Path = c.Path + "." + seg
	}
	return &c
}

// Lookup resolves name in the active scope.
func (e *Env) Lookup(name string) (*document.Document, bool) {
	v, ok := e.Values[name]
	return v, ok
}
