// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package document

// Annotations is a side-table carrying the system-populated metadata
// that spec.md attaches to mapping nodes ($envValues, $location)
// without hanging it off the ordinary Map entries — keeping the output
// tree a pure data tree, per spec.md §9 "Prototype-style meta-keys ->
// explicit side-table". Evaluation is single-threaded (spec.md §5), so
// no locking is needed.
type Annotations struct {
	envValues map[*Document]map[string]*Document
	location  map[*Document]string
}

// NewAnnotations creates an empty side-table.
func NewAnnotations() *Annotations {
	return &Annotations{
		envValues: map[*Document]map[string]*Document{},
		location:  map[*Document]string{},
	}
}

// SetEnvValues records the fully-populated local scope for a mapping
// node produced by the import graph walker (C3).
func (a *Annotations) SetEnvValues(n *Document, env map[string]*Document) {
	a.envValues[n] = env
}

// EnvValues returns the scope recorded for n, if any.
func (a *Annotations) EnvValues(n *Document) (map[string]*Document, bool) {
	env, ok := a.envValues[n]
	return env, ok
}

// HasEnvValues reports whether n carries a recorded scope — the test
// used by the evaluator to detect "this mapping is the root of an
// imported document" (spec.md §4.4 "Imported-document re-entry").
func (a *Annotations) HasEnvValues(n *Document) bool {
	_, ok := a.envValues[n]
	return ok
}

// SetLocation records the source location a mapping node was loaded
// from.
func (a *Annotations) SetLocation(n *Document, loc string) {
	a.location[n] = loc
}

// Location returns the source location recorded for n, if any.
func (a *Annotations) Location(n *Document) (string, bool) {
	loc, ok := a.location[n]
	return loc, ok
}
