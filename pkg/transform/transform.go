// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package transform implements the tree-walking evaluator (spec.md C4)
// and the output assembler (spec.md C6): it dispatches on document
// node kind, maintains the environment stack, delegates resource
// templates to pkg/template, and finally stamps provenance metadata
// and hoists accumulated global sections into the output. Grounded on
// pkg/core/run.go's single entry-point Run function, generalized here
// from its concurrent worker-queue shape (taskqueue.QueueController) to
// the single-threaded, cooperative model spec.md §5 mandates.
package transform

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/envstack"
	"github.com/tplforge/tplforge/pkg/importgraph"
	"github.com/tplforge/tplforge/pkg/interpolate"
	"github.com/tplforge/tplforge/pkg/location"
	"github.com/tplforge/tplforge/pkg/template"
)

// maxEvalDepth guards the tree-walk recursion the way maxImportDepth
// guards the import graph (spec.md §1 Non-goals: no cycle detection
// beyond a depth limit).
const maxEvalDepth = 256

// GlobalAccumulator collects entries hoisted from template expansions
// into the root-level global sections (spec.md §3, §4.6). A single
// instance is shared across one transform.
type GlobalAccumulator struct {
	sections map[string]*document.Document
}

func newGlobalAccumulator() *GlobalAccumulator {
	return &GlobalAccumulator{sections: map[string]*document.Document{}}
}

// Hoist implements template.Accumulator. Later hoists win on key
// collision within a section, mirroring the "accumulator wins" rule
// spec.md §4.6 step 3 applies at merge-into-output time.
func (g *GlobalAccumulator) Hoist(section, key string, value *document.Document) error {
	m, ok := g.sections[section]
	if !ok {
		m = document.Map()
		g.sections[section] = m
	}
	return m.Set(key, value)
}

// Section returns the accumulated mapping for section, if anything was
// hoisted into it.
func (g *GlobalAccumulator) Section(name string) (*document.Document, bool) {
	m, ok := g.sections[name]
	return m, ok
}

// Evaluator walks a document tree, evaluating macros and string
// interpolation, and expanding resource templates via pkg/template. It
// implements template.Evaluator so the expander can call back into it.
type Evaluator struct {
	Loader       *location.Loader
	Annotations  *document.Annotations
	Interpolator *interpolate.Engine
	Accumulator  *GlobalAccumulator
	Records      []importgraph.Record

	expander *template.Expander
	depth    int
}

// New builds an Evaluator around loader.
func New(loader *location.Loader) *Evaluator {
	e := &Evaluator{
		Loader:       loader,
		Annotations:  document.NewAnnotations(),
		Interpolator: interpolate.New(),
		Accumulator:  newGlobalAccumulator(),
	}
	e.expander = template.New(e, e.Accumulator)
	return e
}

// Transform implements spec.md §6's `transform(rootDoc, rootLocation,
// loader?) → outputDoc` entry point. loader is required: Transform
// builds its own Evaluator around it, so a caller that wants the
// test-seam behaviour of custom handlers passes a Loader built with
// location.NewLoader(customHandlers...). rootLocation is a location
// string ("scheme:payload", file: when no scheme is given) and is the
// base that relative imports of the root document resolve against.
func Transform(ctx context.Context, loader *location.Loader, rootDoc *document.Document, rootLocation string) (*document.Document, error) {
	e := New(loader)

	walker := importgraph.New(loader, e.Annotations, e.Interpolator)
	rootRaw, err := location.Parse(rootLocation)
	if err != nil {
		return nil, err
	}
	base := &location.Resolved{Scheme: rootRaw.Scheme, Payload: rootRaw.Payload}
	if err := walker.Walk(ctx, rootDoc, base); err != nil {
		return nil, err
	}
	e.Records = walker.Records

	env := envstack.New(rootLocation)
	output, err := e.Evaluate(ctx, rootDoc, env)
	if err != nil {
		return nil, err
	}
	return e.assemble(output)
}

// Evaluate is the recursive dispatch entry point (spec.md §4.4) and
// also the callback pkg/template.Expander calls back into.
func (e *Evaluator) Evaluate(ctx context.Context, doc *document.Document, env *envstack.Env) (*document.Document, error) {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxEvalDepth {
		return nil, fmt.Errorf("transform: exceeded max evaluation depth (%d) at %s", maxEvalDepth, env.Path)
	}
	if doc == nil {
		return document.Null(), nil
	}
	switch doc.Kind {
	case document.KindString:
		return e.evalString(doc, env)
	case document.KindSeq:
		return e.evalSeq(ctx, doc, env)
	case document.KindMap:
		return e.evalMap(ctx, doc, env)
	case document.KindTag:
		return e.evalTag(ctx, doc, env)
	default:
		return doc, nil
	}
}

func (e *Evaluator) evalString(doc *document.Document, env *envstack.Env) (*document.Document, error) {
	out, err := e.Interpolator.Interpolate(doc.Str, env.Values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", env.Path, err)
	}
	return document.String(out), nil
}

func (e *Evaluator) evalSeq(ctx context.Context, doc *document.Document, env *envstack.Env) (*document.Document, error) {
	out := make([]*document.Document, len(doc.Seq))
	for i, item := range doc.Seq {
		v, err := e.Evaluate(ctx, item, env.WithPath(strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return document.Seq(out...), nil
}

func (e *Evaluator) evalMap(ctx context.Context, doc *document.Document, env *envstack.Env) (*document.Document, error) {
	activeEnv := env
	if e.Annotations.HasEnvValues(doc) {
		ae, err := e.reenterImport(ctx, doc, env)
		if err != nil {
			return nil, err
		}
		activeEnv = ae
	}

	resourcesMode := inResourcesContext(activeEnv.Path)

	out := document.Map()
	for _, entry := range doc.Map {
		k, v := entry.Key, entry.Value
		if isMetaKey(k) {
			continue
		}
		if strings.HasPrefix(k, "$merge") {
			spliced, err := e.Evaluate(ctx, v, activeEnv.WithPath(k))
			if err != nil {
				return nil, err
			}
			if spliced.Kind != document.KindMap {
				return nil, fmt.Errorf("%s: $merge value must evaluate to a mapping", activeEnv.WithPath(k).Path)
			}
			for _, se := range spliced.Map {
				if _, exists := out.Get(se.Key); exists {
					return nil, fmt.Errorf("%s: $merge collision on key %q", activeEnv.Path, se.Key)
				}
				_ = out.Set(se.Key, se.Value)
			}
			continue
		}
		if resourcesMode {
			expanded, err := e.evalResourceEntry(ctx, k, v, activeEnv)
			if err != nil {
				return nil, err
			}
			for rk, rv := range expanded {
				if _, exists := out.Get(rk); exists {
					return nil, fmt.Errorf("%s: duplicate resource name %q after expansion", activeEnv.Path, rk)
				}
				_ = out.Set(rk, rv)
			}
			continue
		}
		ev, err := e.Evaluate(ctx, v, activeEnv.WithPath(k))
		if err != nil {
			return nil, err
		}
		_ = out.Set(k, ev)
	}
	return out, nil
}

// reenterImport implements spec.md §4.4 "Imported-document re-entry".
func (e *Evaluator) reenterImport(ctx context.Context, doc *document.Document, outerEnv *envstack.Env) (*envstack.Env, error) {
	rawEnv, _ := e.Annotations.EnvValues(doc)
	loc, hasLoc := e.Annotations.Location(doc)

	innerEnv := &envstack.Env{Values: rawEnv, Prefix: outerEnv.Prefix, Location: outerEnv.Location, Path: outerEnv.Path}
	if hasLoc {
		innerEnv.Location = loc
	}

	processed := make(map[string]*document.Document, len(rawEnv))
	for k, v := range rawEnv {
		if isTemplate(v) {
			processed[k] = v
			continue
		}
		ev, err := e.Evaluate(ctx, v, innerEnv)
		if err != nil {
			return nil, fmt.Errorf("resolving import %q: %w", k, err)
		}
		processed[k] = ev
	}

	bodyEnv := outerEnv.Extend(processed)
	if hasLoc {
		bodyEnv = bodyEnv.WithLocation(loc)
	}
	return bodyEnv, nil
}

func (e *Evaluator) evalMappingOrEmpty(ctx context.Context, node *document.Document, env *envstack.Env) (map[string]*document.Document, error) {
	if node == nil {
		return map[string]*document.Document{}, nil
	}
	v, err := e.Evaluate(ctx, node, env)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]*document.Document{}, nil
	}
	if v.Kind != document.KindMap {
		return nil, fmt.Errorf("%s: expected a mapping", env.Path)
	}
	out := make(map[string]*document.Document, len(v.Map))
	for _, ve := range v.Map {
		out[ve.Key] = ve.Value
	}
	return out, nil
}

// assemble implements spec.md §4.6, the output assembler (C6).
func (e *Evaluator) assemble(output *document.Document) (*document.Document, error) {
	if output.Kind != document.KindMap {
		return output, nil
	}

	host, _ := os.Hostname()
	userName := "unknown"
	if u, err := user.Current(); err == nil {
		userName = u.Username
	}

	importsSeq := make([]*document.Document, len(e.Records))
	for i, r := range e.Records {
		importsSeq[i] = document.Map(
			document.Entry{Key: "key", Value: document.String(r.Key)},
			document.Entry{Key: "from", Value: document.String(r.From)},
			document.Entry{Key: "imported", Value: document.String(r.Imported)},
			document.Entry{Key: "sha256Digest", Value: document.String(r.SHA256Digest)},
		)
	}
	iidy := document.Map(
		document.Entry{Key: "Host", Value: document.String(host)},
		document.Entry{Key: "User", Value: document.String(userName)},
		document.Entry{Key: "Imports", Value: document.Seq(importsSeq...)},
	)

	metadata, ok := output.Get("Metadata")
	if !ok || metadata.Kind != document.KindMap {
		metadata = document.Map()
	}
	_ = metadata.Set("iidy", iidy)
	_ = output.Set("Metadata", metadata)

	_, hasVersion := output.Get("AWSTemplateFormatVersion")
	_, hasResources := output.Get("Resources")
	if hasVersion || hasResources {
		_ = output.Set("AWSTemplateFormatVersion", document.String("2010-09-09"))
		for _, section := range []string{"Parameters", "Conditions", "Mappings", "Outputs"} {
			if _, ok := output.Get(section); !ok {
				_ = output.Set(section, document.Map())
			}
		}
	}

	for _, section := range template.GlobalSections {
		acc, ok := e.Accumulator.Section(section)
		if !ok || len(acc.Map) == 0 {
			continue
		}
		existing, has := output.Get(section)
		if !has || existing.Kind != document.KindMap {
			existing = document.Map()
		}
		for _, entry := range acc.Map {
			_ = existing.Set(entry.Key, entry.Value)
		}
		_ = output.Set(section, existing)
	}

	output.Delete("$imports")
	output.Delete("$defs")
	output.Delete("$envValues")
	output.Delete("$params")
	output.Delete("$location")

	return output, nil
}

func isMetaKey(k string) bool {
	switch k {
	case "$imports", "$defs", "$params", "$envValues", "$location":
		return true
	default:
		return false
	}
}

func isTemplate(d *document.Document) bool {
	if d == nil || d.Kind != document.KindMap {
		return false
	}
	_, ok := d.Get("$params")
	return ok
}

// inResourcesContext reports whether path names a Resources section
// whose entries should be dispatched through §4.5 rather than walked
// as plain mapping values — true when the last path segment is
// "Resources" and it is not nested under an Overrides sub-tree (spec.md
// §4.4 bullet on Plain mapping).
func inResourcesContext(path string) bool {
	if path == "" {
		return false
	}
	segs := strings.Split(path, ".")
	last := segs[len(segs)-1]
	if last != "Resources" {
		return false
	}
	if len(segs) >= 2 && segs[len(segs)-2] == "Overrides" {
		return false
	}
	return true
}
