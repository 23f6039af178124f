// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package template implements user-defined resource-template expansion
// (spec.md C5): sub-environment construction, parameter defaulting and
// validation, and global-section hoisting. Grounded on
// pkg/manifest/manifest.go's resolveManifestLinks/mergeFolders, which
// builds a child context from a parent one and merges sibling trees —
// generalized here from a fixed Node/folder shape to parameter-driven
// template expansion.
package template

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/envstack"
)

// GlobalSections lists the section names hoisted from a template
// expansion into the root output (spec.md §4.5 step 9, GLOSSARY).
var GlobalSections = []string{"Parameters", "Metadata", "Mappings", "Conditions", "Transform", "Outputs"}

// Evaluator is the recursive tree-walk callback the expander delegates
// Resources/global-section evaluation to. Declared here, implemented
// by pkg/transform.Evaluator, to avoid an import cycle between the
// evaluator (which delegates into this package, spec.md §4.4) and the
// expander (which calls back into the evaluator, spec.md §4.5).
type Evaluator interface {
	Evaluate(ctx context.Context, doc *document.Document, env *envstack.Env) (*document.Document, error)
}

// Accumulator collects hoisted global-section entries across every
// template expansion in one transform (spec.md §3 GlobalAccumulator).
type Accumulator interface {
	Hoist(section, key string, value *document.Document) error
}

// ParamDecl mirrors one entry of a template's $params declaration.
type ParamDecl struct {
	Name           string `validate:"required"`
	Default        *document.Document
	Type           string
	Schema         *document.Document
	AllowedValues  []*document.Document
	AllowedPattern string
}

// Expander implements spec.md C5.
type Expander struct {
	Eval     Evaluator
	Acc      Accumulator
	validate *validator.Validate
}

// New builds an Expander.
func New(eval Evaluator, acc Accumulator) *Expander {
	return &Expander{Eval: eval, Acc: acc, validate: validator.New()}
}

// Expand implements spec.md §4.5 steps 1-9: it returns the expanded
// resources, keyed by their final (prefixed) name, and hoists the
// template's global sections into x.Acc as a side effect.
func (x *Expander) Expand(ctx context.Context, templateDoc *document.Document, templateEnv *envstack.Env, name string, resourceNode *document.Document, outerEnv *envstack.Env) (map[string]*document.Document, error) {
	prefix := name
	if np, ok := resourceNode.Get("NamePrefix"); ok {
		if s, ok := np.AsString(); ok && s != "" {
			prefix = s
		}
	}

	overridesNode, _ := resourceNode.Get("Overrides")
	evaluatedOverrides, err := x.evaluateOrNil(ctx, overridesNode, outerEnv.WithPath(name).WithPath("Overrides"))
	if err != nil {
		return nil, fmt.Errorf("resource %s: evaluating Overrides: %w", name, err)
	}
	resourceDoc, err := mergeDocuments(templateDoc, evaluatedOverrides)
	if err != nil {
		return nil, fmt.Errorf("resource %s: merging Overrides: %w", name, err)
	}

	paramDeclsNode, _ := resourceDoc.Get("$params")
	decls, err := parseParamDecls(paramDeclsNode)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", name, err)
	}

	resourceEnv := outerEnv.WithPath(name)
	paramDefaultsEnv := resourceEnv.WithPrefix(prefix).Extend(templateEnv.Values)
	paramDefaults := map[string]*document.Document{}
	for _, d := range decls {
		if d.Default == nil {
			continue
		}
		v, err := x.Eval.Evaluate(ctx, d.Default, paramDefaultsEnv)
		if err != nil {
			return nil, fmt.Errorf("resource %s: evaluating default for parameter %s: %w", name, d.Name, err)
		}
		paramDefaults[d.Name] = v
	}

	propertiesNode, _ := resourceNode.Get("Properties")
	providedParams, err := x.evaluateMappingOrEmpty(ctx, propertiesNode, resourceEnv.WithPath("Properties"))
	if err != nil {
		return nil, fmt.Errorf("resource %s: evaluating Properties: %w", name, err)
	}

	mergedParams := map[string]*document.Document{}
	for k, v := range paramDefaults {
		mergedParams[k] = v
	}
	for k, v := range providedParams {
		mergedParams[k] = v
	}

	if err := x.validateParams(decls, mergedParams, name); err != nil {
		return nil, err
	}

	subEnv := resourceEnv.WithPrefix(prefix).Extend(paramDefaults).Extend(providedParams).Extend(templateEnv.Values)

	resourcesNode, _ := resourceDoc.Get("Resources")
	evaluatedResources, err := x.evaluateMappingOrEmpty(ctx, resourcesNode, subEnv.WithPath("Resources"))
	if err != nil {
		return nil, fmt.Errorf("resource %s: evaluating Resources: %w", name, err)
	}
	out := make(map[string]*document.Document, len(evaluatedResources))
	for k, v := range evaluatedResources {
		out[prefix+k] = v
	}

	for _, section := range GlobalSections {
		sectionNode, ok := resourceDoc.Get(section)
		if !ok {
			continue
		}
		evaluated, err := x.Eval.Evaluate(ctx, sectionNode, subEnv.WithPath(section))
		if err != nil {
			return nil, fmt.Errorf("resource %s: evaluating %s: %w", name, section, err)
		}
		if evaluated.Kind != document.KindMap {
			return nil, fmt.Errorf("resource %s: global section %s must be a mapping", name, section)
		}
		for _, e := range evaluated.Map {
			if err := x.Acc.Hoist(section, prefix+e.Key, e.Value); err != nil {
				return nil, fmt.Errorf("resource %s: hoisting %s.%s: %w", name, section, e.Key, err)
			}
		}
	}

	return out, nil
}

func (x *Expander) evaluateOrNil(ctx context.Context, node *document.Document, env *envstack.Env) (*document.Document, error) {
	if node == nil {
		return nil, nil
	}
	return x.Eval.Evaluate(ctx, node, env)
}

func (x *Expander) evaluateMappingOrEmpty(ctx context.Context, node *document.Document, env *envstack.Env) (map[string]*document.Document, error) {
	if node == nil {
		return map[string]*document.Document{}, nil
	}
	evaluated, err := x.Eval.Evaluate(ctx, node, env)
	if err != nil {
		return nil, err
	}
	if evaluated == nil {
		return map[string]*document.Document{}, nil
	}
	if evaluated.Kind != document.KindMap {
		return nil, fmt.Errorf("expected a mapping, got %s", evaluated.Kind)
	}
	out := make(map[string]*document.Document, len(evaluated.Map))
	for _, e := range evaluated.Map {
		out[e.Key] = e.Value
	}
	return out, nil
}

func parseParamDecls(node *document.Document) ([]ParamDecl, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind != document.KindSeq {
		return nil, fmt.Errorf("$params must be a sequence")
	}
	decls := make([]ParamDecl, 0, len(node.Seq))
	for _, p := range node.Seq {
		if p.Kind != document.KindMap {
			return nil, fmt.Errorf("$params entry must be a mapping")
		}
		nameNode, ok := p.Get("Name")
		if !ok {
			return nil, fmt.Errorf("$params entry missing Name")
		}
		name, ok := nameNode.AsString()
		if !ok {
			return nil, fmt.Errorf("$params Name must be a string")
		}
		decl := ParamDecl{Name: name}
		if d, ok := p.Get("Default"); ok {
			decl.Default = d
		}
		if t, ok := p.Get("Type"); ok {
			decl.Type, _ = t.AsString()
		}
		if s, ok := p.Get("Schema"); ok {
			decl.Schema = s
		}
		if av, ok := p.Get("AllowedValues"); ok {
			if av.Kind != document.KindSeq {
				return nil, fmt.Errorf("$params[%s].AllowedValues must be a sequence", name)
			}
			decl.AllowedValues = av.Seq
		}
		if ap, ok := p.Get("AllowedPattern"); ok {
			decl.AllowedPattern, _ = ap.AsString()
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// validateParams implements spec.md §4.5 step 6, aggregating every
// failing parameter into one ParameterValidation error rather than
// reporting only the first.
func (x *Expander) validateParams(decls []ParamDecl, provided map[string]*document.Document, resourceName string) error {
	var errs *multierror.Error
	for _, d := range decls {
		if err := x.validate.Struct(&d); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("resource %s: parameter %s: %w", resourceName, d.Name, err))
			continue
		}
		v, ok := provided[d.Name]
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("resource %s: missing required parameter %s", resourceName, d.Name))
			continue
		}
		switch {
		case d.Schema != nil:
			if err := validateSchema(d.Schema, v); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("resource %s: parameter %s: %w", resourceName, d.Name, err))
			}
		case len(d.AllowedValues) > 0:
			if !containsValue(d.AllowedValues, v) {
				errs = multierror.Append(errs, fmt.Errorf("resource %s: parameter %s: value not in AllowedValues", resourceName, d.Name))
			}
		case d.AllowedPattern != "":
			s, ok := v.AsString()
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("resource %s: parameter %s: AllowedPattern requires a string value", resourceName, d.Name))
				continue
			}
			re, err := regexp.Compile(d.AllowedPattern)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("resource %s: parameter %s: invalid AllowedPattern: %w", resourceName, d.Name, err))
				continue
			}
			if !re.MatchString(s) {
				errs = multierror.Append(errs, fmt.Errorf("resource %s: parameter %s: value %q does not match AllowedPattern", resourceName, d.Name, s))
			}
		}
	}
	return errs.ErrorOrNil()
}

func validateSchema(schema, value *document.Document) error {
	schemaLoader := gojsonschema.NewGoLoader(schema.Native())
	docLoader := gojsonschema.NewGoLoader(value.Native())
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func containsValue(allowed []*document.Document, v *document.Document) bool {
	target := fmt.Sprintf("%v", v.Native())
	for _, a := range allowed {
		if fmt.Sprintf("%v", a.Native()) == target {
			return true
		}
	}
	return false
}

// mergeDocuments merges overrides onto base (overrides wins on
// conflict), the way spec.md §4.5 step 2 describes. The round-trip
// through Native()/FromNativeWithTags is lossless for the tag
// convention this system uses (spec.md §3), so Ref/Fn::/$-tagged
// nodes survive the merge intact.
func mergeDocuments(base, overrides *document.Document) (*document.Document, error) {
	if overrides == nil {
		return base.Clone(), nil
	}
	baseNative, ok := base.Native().(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("template base must be a mapping")
	}
	overrideNative, ok := overrides.Native().(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("Overrides must be a mapping")
	}
	if err := mergo.Merge(&baseNative, overrideNative, mergo.WithOverride(), mergo.WithAppendSlice()); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return document.FromNativeWithTags(baseNative), nil
}
