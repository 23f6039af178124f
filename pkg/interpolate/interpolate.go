// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package interpolate implements the "{{var}}" string-template engine
// spec.md §4.4 requires: strict resolution (an unresolved variable is
// an error) plus the tojson/toyaml/base64 helpers. Grounded on
// pkg/api/parser.go's resolveVariables, which also builds a
// text/template.FuncMap over manifest content — generalized here from
// html/template (which would HTML-escape interpolated YAML/JSON
// content) to text/template, and enriched with Masterminds/sprig for
// the rest of the helper surface.
package interpolate

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/tplforge/tplforge/pkg/document"
)

// Engine renders "{{var}}"-style templates against an environment of
// *document.Document bindings.
type Engine struct {
	funcs template.FuncMap
}

// New builds an Engine with the spec-mandated helpers plus the sprig
// function library.
func New() *Engine {
	funcs := sprig.TxtFuncMap()
	funcs["tojson"] = tojsonFunc
	funcs["toyaml"] = toyamlFunc
	funcs["base64"] = base64Func
	return &Engine{funcs: funcs}
}

// Interpolate renders tmpl against env. A reference to a name absent
// from env is an error (strict mode), surfaced through
// Option("missingkey=error").
func (e *Engine) Interpolate(tmpl string, env map[string]*document.Document) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	data := make(map[string]interface{}, len(env))
	for k, v := range env {
		data[k] = v.Native()
	}

	t, err := template.New("interpolate").Option("missingkey=error").Funcs(e.funcs).Parse(preprocess(tmpl))
	if err != nil {
		return "", fmt.Errorf("interpolate: parse %q: %w", tmpl, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("interpolate: render %q: %w", tmpl, err)
	}
	return buf.String(), nil
}

func tojsonFunc(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tojson: %w", err)
	}
	return string(b), nil
}

func toyamlFunc(v interface{}) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("toyaml: %w", err)
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}

func base64Func(v interface{}) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%v", v)))
}

// identPattern matches a bare "{{name}}" or "{{name.path}}" reference
// (optionally the start of a pipeline, "{{name | helper}}") so it can
// be rewritten into Go template's dot-prefixed field-access form.
var identPattern = regexp.MustCompile(`(\{\{-?\s*)([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)`)

var reservedWords = map[string]bool{
	"if": true, "range": true, "end": true, "else": true, "with": true,
	"define": true, "template": true, "block": true, "true": true,
	"false": true, "nil": true,
}

// preprocess rewrites the spec's handlebars-style "{{var}}" syntax
// into the "{{.var}}" field-access form text/template expects,
// leaving Go template control keywords untouched.
func preprocess(s string) string {
	return identPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := identPattern.FindStringSubmatch(m)
		prefix, ident := sub[1], sub[2]
		head := ident
		if idx := strings.IndexByte(ident, '.'); idx >= 0 {
			head = ident[:idx]
		}
		if reservedWords[head] {
			return m
		}
		return prefix + "." + ident
	})
}
