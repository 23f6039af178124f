// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/envstack"
)

// evalTag dispatches a tagged node on its TagName (spec.md §4.4 "Tagged
// node" bullet and §4.2's macro table).
func (e *Evaluator) evalTag(ctx context.Context, doc *document.Document, env *envstack.Env) (*document.Document, error) {
	switch doc.TagName {
	case "$include":
		return e.evalInclude(ctx, doc.Tagged, env)
	case "$expand":
		return e.evalExpand(ctx, doc.Tagged, env)
	case "$escape":
		return doc.Tagged, nil
	case "$string":
		return e.evalStringMacro(ctx, doc.Tagged, env)
	case "$parseYaml":
		return e.evalParseYaml(ctx, doc.Tagged, env)
	case "$let":
		return e.evalLet(ctx, doc.Tagged, env)
	case "$map":
		return e.evalMapMacro(ctx, doc.Tagged, env)
	case "$flatten":
		return e.evalFlatten(ctx, doc.Tagged, env)
	case "$concatMap":
		return e.evalConcatMap(ctx, doc.Tagged, env)
	case "$mapListToHash":
		return e.evalMapListToHash(ctx, doc.Tagged, env)
	case "$fromPairs":
		return e.evalFromPairs(ctx, doc.Tagged, env)
	case "Ref":
		return e.evalRef(doc.Tagged, env)
	default:
		ev, err := e.Evaluate(ctx, doc.Tagged, env)
		if err != nil {
			return nil, err
		}
		return document.Tag(doc.TagName, ev), nil
	}
}

// evalInclude implements "!$include name" / "!$include name.sel1.sel2…"
// (spec.md §4.2): look up name in the active scope, drill through the
// dotted selector path, then evaluate what's found.
func (e *Evaluator) evalInclude(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	s, ok := payload.AsString()
	if !ok {
		return nil, fmt.Errorf("%s: $include payload must be a string", env.Path)
	}
	parts := strings.Split(s, ".")
	name := parts[0]
	v, ok := env.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: $include: unbound name %q", env.Path, name)
	}
	cur := v
	for _, sel := range parts[1:] {
		cur = drillInto(cur, sel)
		if cur == nil {
			return nil, fmt.Errorf("%s: $include: missing selector %q in %s", env.Path, sel, s)
		}
	}
	return e.Evaluate(ctx, cur, env.WithPath("$include"))
}

func drillInto(d *document.Document, sel string) *document.Document {
	if d == nil {
		return nil
	}
	switch d.Kind {
	case document.KindMap:
		v, ok := d.Get(sel)
		if !ok {
			return nil
		}
		return v
	case document.KindSeq:
		idx, err := strconv.Atoi(sel)
		if err != nil || idx < 0 || idx >= len(d.Seq) {
			return nil
		}
		return d.Seq[idx]
	default:
		return nil
	}
}

// evalExpand implements "!$expand {template, params}" (spec.md §4.2):
// clone the named template, merge the outer scope with the supplied
// params, strip $params from the clone, then evaluate it.
func (e *Evaluator) evalExpand(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	if payload == nil || payload.Kind != document.KindMap {
		return nil, fmt.Errorf("%s: $expand payload must be a mapping", env.Path)
	}
	templateNameNode, ok := payload.Get("template")
	if !ok {
		return nil, fmt.Errorf("%s: $expand missing 'template'", env.Path)
	}
	templateName, ok := templateNameNode.AsString()
	if !ok {
		return nil, fmt.Errorf("%s: $expand 'template' must be a string name", env.Path)
	}
	templateDoc, ok := env.Lookup(templateName)
	if !ok {
		return nil, fmt.Errorf("%s: $expand: unbound template name %q", env.Path, templateName)
	}
	if !isTemplate(templateDoc) {
		return nil, fmt.Errorf("%s: $expand: %q is not a template", env.Path, templateName)
	}

	paramsNode, _ := payload.Get("params")
	providedParams, err := e.evalMappingOrEmpty(ctx, paramsNode, env)
	if err != nil {
		return nil, fmt.Errorf("%s: $expand: evaluating params: %w", env.Path, err)
	}

	clone := templateDoc.Clone()
	clone.Delete("$params")
	if tv, ok := e.Annotations.EnvValues(templateDoc); ok {
		e.Annotations.SetEnvValues(clone, tv)
	}
	if loc, ok := e.Annotations.Location(templateDoc); ok {
		e.Annotations.SetLocation(clone, loc)
	}

	return e.Evaluate(ctx, clone, env.Extend(providedParams).WithPath("$expand"))
}

// evalStringMacro implements "!$string v" (spec.md §4.2): evaluate v,
// serialise the result as YAML, unwrapping a singleton sequence first.
func (e *Evaluator) evalStringMacro(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	v, err := e.Evaluate(ctx, payload, env)
	if err != nil {
		return nil, err
	}
	if v.Kind == document.KindSeq && len(v.Seq) == 1 {
		v = v.Seq[0]
	}
	b, err := document.Dump(v)
	if err != nil {
		return nil, fmt.Errorf("%s: $string: %w", env.Path, err)
	}
	return document.String(strings.TrimRight(string(b), "\n")), nil
}

// evalParseYaml implements "!$parseYaml s" (spec.md §4.2): evaluate s,
// parse the resulting string as YAML, then evaluate that.
func (e *Evaluator) evalParseYaml(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	v, err := e.Evaluate(ctx, payload, env)
	if err != nil {
		return nil, err
	}
	s, ok := v.AsString()
	if !ok {
		return nil, fmt.Errorf("%s: $parseYaml requires a string value", env.Path)
	}
	parsed, err := document.Parse([]byte(s), document.FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("%s: $parseYaml: %w", env.Path, err)
	}
	return e.Evaluate(ctx, parsed, env)
}

// evalLet implements "!$let {name: value, ..., in: body}" (spec.md
// §4.2): bind each non-"in" entry in the active scope, then evaluate
// body in the extended scope.
func (e *Evaluator) evalLet(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	if payload == nil || payload.Kind != document.KindMap {
		return nil, fmt.Errorf("%s: $let payload must be a mapping", env.Path)
	}
	bodyNode, ok := payload.Get("in")
	if !ok {
		return nil, fmt.Errorf("%s: $let missing 'in'", env.Path)
	}
	bindings := map[string]*document.Document{}
	for _, entry := range payload.Map {
		if entry.Key == "in" {
			continue
		}
		v, err := e.Evaluate(ctx, entry.Value, env.WithPath(entry.Key))
		if err != nil {
			return nil, err
		}
		bindings[entry.Key] = v
	}
	return e.Evaluate(ctx, bodyNode, env.Extend(bindings).WithPath("in"))
}

// evalMapMacro implements "!$map {items, template, var?}" (spec.md
// §4.2): evaluate items to a sequence, then evaluate template once per
// element with var (default "item") and "{var}Idx" bound.
func (e *Evaluator) evalMapMacro(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	if payload == nil || payload.Kind != document.KindMap {
		return nil, fmt.Errorf("%s: $map payload must be a mapping", env.Path)
	}
	itemsNode, ok := payload.Get("items")
	if !ok {
		return nil, fmt.Errorf("%s: $map missing 'items'", env.Path)
	}
	templateNode, ok := payload.Get("template")
	if !ok {
		return nil, fmt.Errorf("%s: $map missing 'template'", env.Path)
	}
	varName := "item"
	if vn, ok := payload.Get("var"); ok {
		if s, ok := vn.AsString(); ok && s != "" {
			varName = s
		}
	}

	items, err := e.Evaluate(ctx, itemsNode, env.WithPath("items"))
	if err != nil {
		return nil, err
	}
	if items.Kind != document.KindSeq {
		return nil, fmt.Errorf("%s: $map 'items' must evaluate to a sequence", env.Path)
	}

	out := make([]*document.Document, len(items.Seq))
	for i, item := range items.Seq {
		sub := env.Extend(map[string]*document.Document{
			varName:         item,
			varName + "Idx": document.Int(int64(i)),
		})
		rv, err := e.Evaluate(ctx, templateNode, sub.WithPath(fmt.Sprintf("template[%d]", i)))
		if err != nil {
			return nil, err
		}
		out[i] = rv
	}
	return document.Seq(out...), nil
}

// evalFlatten implements "!$flatten seqOfSeq" (spec.md §4.2).
func (e *Evaluator) evalFlatten(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	v, err := e.Evaluate(ctx, payload, env)
	if err != nil {
		return nil, err
	}
	return flattenSeq(v, env)
}

func flattenSeq(v *document.Document, env *envstack.Env) (*document.Document, error) {
	if v.Kind != document.KindSeq {
		return nil, fmt.Errorf("%s: expected a sequence of sequences to flatten", env.Path)
	}
	out := []*document.Document{}
	for _, inner := range v.Seq {
		if inner.Kind != document.KindSeq {
			return nil, fmt.Errorf("%s: $flatten: element is not a sequence", env.Path)
		}
		out = append(out, inner.Seq...)
	}
	return document.Seq(out...), nil
}

// evalConcatMap implements "!$concatMap {items, template, var?}"
// (spec.md §4.2), equivalent to $flatten composed with $map.
func (e *Evaluator) evalConcatMap(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	mapped, err := e.evalMapMacro(ctx, payload, env)
	if err != nil {
		return nil, err
	}
	return flattenSeq(mapped, env)
}

// evalMapListToHash implements "!$mapListToHash {items, template,
// var?}" (spec.md §4.2): as $map, then lift the resulting
// [{key,value},...] sequence into a mapping.
func (e *Evaluator) evalMapListToHash(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	mapped, err := e.evalMapMacro(ctx, payload, env)
	if err != nil {
		return nil, err
	}
	return liftPairsToMap(mapped, env)
}

// evalFromPairs implements "!$fromPairs pairs" (spec.md §4.2): evaluate
// pairs, then directly lift [{key,value},...] into a mapping.
func (e *Evaluator) evalFromPairs(ctx context.Context, payload *document.Document, env *envstack.Env) (*document.Document, error) {
	v, err := e.Evaluate(ctx, payload, env)
	if err != nil {
		return nil, err
	}
	return liftPairsToMap(v, env)
}

func liftPairsToMap(v *document.Document, env *envstack.Env) (*document.Document, error) {
	if v.Kind != document.KindSeq {
		return nil, fmt.Errorf("%s: expected a sequence of {key,value} pairs", env.Path)
	}
	out := document.Map()
	for _, pair := range v.Seq {
		keyNode, ok := pair.Get("key")
		if !ok {
			return nil, fmt.Errorf("%s: pair missing 'key'", env.Path)
		}
		key, ok := keyNode.AsString()
		if !ok {
			return nil, fmt.Errorf("%s: pair 'key' must be a string", env.Path)
		}
		valueNode, ok := pair.Get("value")
		if !ok {
			return nil, fmt.Errorf("%s: pair missing 'value'", env.Path)
		}
		if _, exists := out.Get(key); exists {
			return nil, fmt.Errorf("%s: duplicate key %q", env.Path, key)
		}
		_ = out.Set(key, valueNode)
	}
	return out, nil
}

// evalRef implements "!Ref name" (spec.md §4.2): an "AWS:"-prefixed
// pseudo-parameter name passes through unchanged; any other name is
// rewritten with the active name prefix so a Ref inside an expanded
// template resolves to the resource's final, prefixed name.
func (e *Evaluator) evalRef(payload *document.Document, env *envstack.Env) (*document.Document, error) {
	s, ok := payload.AsString()
	if !ok {
		return document.Tag("Ref", payload), nil
	}
	if strings.HasPrefix(s, "AWS:") {
		return document.Tag("Ref", document.String(s)), nil
	}
	return document.Tag("Ref", document.String(env.Prefix+s)), nil
}
