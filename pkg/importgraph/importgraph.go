// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package importgraph walks a document tree resolving $imports and
// validating $defs/$params name uniqueness (spec.md C3), recording a
// provenance log and stamping $envValues on every mapping that
// declares local scope. Grounded on pkg/manifest/manifest.go's
// recursive descent over a Node tree, generalized from a fixed Node
// shape to the document.Document model.
package importgraph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/location"
)

// maxImportDepth guards against unbounded import recursion in lieu of
// cycle detection (spec.md §1 Non-goals: "cycle detection other than
// via a depth limit").
const maxImportDepth = 64

// Interpolator resolves "{{...}}" expressions inside an import
// location string against a partial environment. Declared here rather
// than imported from pkg/interpolate to avoid a dependency cycle —
// pkg/transform wires a concrete pkg/interpolate.Engine into both
// this package and the evaluator.
type Interpolator interface {
	Interpolate(tmpl string, env map[string]*document.Document) (string, error)
}

// Record is one entry of the import provenance log (spec.md §3
// ImportRecord), appended in discovery order.
type Record struct {
	Key          string
	From         string
	Imported     string
	SHA256Digest string
}

// Walker resolves $imports/$defs/$params across a document tree. A
// single Walker accumulates the provenance log across the whole
// transform, the way the root GlobalAccumulator is shared in C5/C6.
type Walker struct {
	Loader       *location.Loader
	Annotations  *document.Annotations
	Interpolator Interpolator

	Records []Record
}

// New builds a Walker over loader, stamping scope annotations into
// annotations and interpolating import location expressions with
// interpolator.
func New(loader *location.Loader, annotations *document.Annotations, interpolator Interpolator) *Walker {
	return &Walker{Loader: loader, Annotations: annotations, Interpolator: interpolator}
}

// Walk processes doc, and everything reachable from it, resolving
// imports relative to base (nil at the document root).
func (w *Walker) Walk(ctx context.Context, doc *document.Document, base *location.Resolved) error {
	return w.walk(ctx, doc, base, 0)
}

func (w *Walker) walk(ctx context.Context, doc *document.Document, base *location.Resolved, depth int) error {
	if doc == nil {
		return nil
	}
	if depth > maxImportDepth {
		return fmt.Errorf("importgraph: exceeded max import depth (%d) resolving %s", maxImportDepth, baseString(base))
	}

	switch doc.Kind {
	case document.KindMap:
		if err := w.processScope(ctx, doc, base, depth); err != nil {
			return err
		}
		for _, e := range doc.Map {
			if e.Key == "$imports" {
				// $imports values are location strings, not document
				// trees — nothing further to descend into here; the
				// imports themselves were already walked above.
				continue
			}
			if err := w.walk(ctx, e.Value, base, depth); err != nil {
				return err
			}
		}
	case document.KindSeq:
		for _, item := range doc.Seq {
			if err := w.walk(ctx, item, base, depth); err != nil {
				return err
			}
		}
	case document.KindTag:
		if err := w.walk(ctx, doc.Tagged, base, depth); err != nil {
			return err
		}
	}
	return nil
}

// processScope handles one mapping's own $imports/$defs/$params, per
// spec.md §4.3. It is a no-op (no annotation stamped) for mappings
// that declare none of the three.
func (w *Walker) processScope(ctx context.Context, doc *document.Document, base *location.Resolved, depth int) error {
	importsNode, hasImports := doc.Get("$imports")
	defsNode, hasDefs := doc.Get("$defs")
	paramsNode, hasParams := doc.Get("$params")
	if !hasImports && !hasDefs && !hasParams {
		return nil
	}

	env := map[string]*document.Document{}
	seen := map[string]bool{} // key-membership collision detection (spec.md §9 Open Question)

	if hasImports {
		if importsNode.Kind != document.KindMap {
			return fmt.Errorf("importgraph: $imports must be a mapping")
		}
		for _, e := range importsNode.Map {
			if err := w.resolveOneImport(ctx, e.Key, e.Value, base, depth, env, seen); err != nil {
				return err
			}
		}
	}

	if hasDefs {
		if defsNode.Kind != document.KindMap {
			return fmt.Errorf("importgraph: $defs must be a mapping")
		}
		for _, e := range defsNode.Map {
			if seen[e.Key] {
				return fmt.Errorf("importgraph: name collision %q across $imports/$defs/$params", e.Key)
			}
			seen[e.Key] = true
			env[e.Key] = e.Value
		}
	}

	if hasParams {
		if paramsNode.Kind != document.KindSeq {
			return fmt.Errorf("importgraph: $params must be a sequence")
		}
		for _, p := range paramsNode.Seq {
			name, err := paramName(p)
			if err != nil {
				return err
			}
			if seen[name] {
				return fmt.Errorf("importgraph: name collision %q across $imports/$defs/$params", name)
			}
			seen[name] = true
			// Parameter values are bound later, at expansion time
			// (pkg/template) — not part of the import/defs scope.
		}
	}

	w.Annotations.SetEnvValues(doc, env)
	return nil
}

func (w *Walker) resolveOneImport(ctx context.Context, asKey string, locNode *document.Document, base *location.Resolved, depth int, env map[string]*document.Document, seen map[string]bool) error {
	original, ok := locNode.AsString()
	if !ok {
		return fmt.Errorf("importgraph: $imports[%s] must be a string location", asKey)
	}

	locStr := original
	if strings.Contains(locStr, "{{") {
		interpolated, err := w.Interpolator.Interpolate(locStr, env)
		if err != nil {
			return fmt.Errorf("importgraph: interpolating import %s location %q: %w", asKey, original, err)
		}
		locStr = interpolated
	}

	result, resolved, err := w.Loader.Load(ctx, locStr, base)
	if err != nil {
		return fmt.Errorf("importgraph: loading %s (%s): %w", asKey, original, err)
	}
	if result.Doc.Kind == document.KindMap {
		w.Annotations.SetLocation(result.Doc, resolved.String())
	}

	sum := sha256.Sum256([]byte(result.Data))
	w.Records = append(w.Records, Record{
		Key:          asKey,
		From:         original,
		Imported:     resolved.String(),
		SHA256Digest: hex.EncodeToString(sum[:]),
	})

	if seen[asKey] {
		return fmt.Errorf("importgraph: name collision %q across $imports/$defs/$params", asKey)
	}
	seen[asKey] = true
	env[asKey] = result.Doc

	return w.walk(ctx, result.Doc, resolved, depth+1)
}

func paramName(p *document.Document) (string, error) {
	nameNode, ok := p.Get("Name")
	if !ok {
		return "", fmt.Errorf("importgraph: $params entry missing Name")
	}
	name, ok := nameNode.AsString()
	if !ok {
		return "", fmt.Errorf("importgraph: $params entry Name must be a string")
	}
	return name, nil
}

func baseString(base *location.Resolved) string {
	if base == nil {
		return "<root>"
	}
	return base.String()
}
