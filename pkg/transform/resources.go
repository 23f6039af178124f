// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/envstack"
)

// evalResourceEntry implements spec.md §4.4's delegation to §4.5 for
// entries of a Resources mapping: a Type that resolves to a bound
// template in scope is expanded via pkg/template; a native
// "AWS::..."/"Custom::..." Type is evaluated in place; anything else is
// a TemplateUse error.
func (e *Evaluator) evalResourceEntry(ctx context.Context, name string, resourceNode *document.Document, resourcesEnv *envstack.Env) (map[string]*document.Document, error) {
	if resourceNode == nil || resourceNode.Kind != document.KindMap {
		return nil, fmt.Errorf("%s.%s: resource entry must be a mapping", resourcesEnv.Path, name)
	}
	typeNode, ok := resourceNode.Get("Type")
	if !ok {
		return nil, fmt.Errorf("%s.%s: resource entry missing Type", resourcesEnv.Path, name)
	}
	evaluatedType, err := e.Evaluate(ctx, typeNode, resourcesEnv.WithPath(name+".Type"))
	if err != nil {
		return nil, err
	}
	typeStr, ok := evaluatedType.AsString()
	if !ok {
		return nil, fmt.Errorf("%s.%s: Type must be a string", resourcesEnv.Path, name)
	}

	if templateDoc, bound := resourcesEnv.Lookup(typeStr); bound && isTemplate(templateDoc) {
		templateEnvMap, _ := e.Annotations.EnvValues(templateDoc)
		templateEnv := &envstack.Env{Values: templateEnvMap}
		return e.expander.Expand(ctx, templateDoc, templateEnv, name, resourceNode, resourcesEnv)
	}

	if strings.HasPrefix(typeStr, "AWS::") || strings.HasPrefix(typeStr, "Custom::") {
		ev, err := e.Evaluate(ctx, resourceNode, resourcesEnv.WithPath(name))
		if err != nil {
			return nil, err
		}
		return map[string]*document.Document{name: ev}, nil
	}

	return nil, fmt.Errorf("%s.%s: invalid resource type %q: not a native AWS/Custom type and not a bound template name", resourcesEnv.Path, name, typeStr)
}
