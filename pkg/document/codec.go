// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format names the wire encoding a Document was parsed from or is
// dumped to.
type Format string

// The supported structured-text formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// dateStampedKeys are the mapping keys whose date-typed values are
// re-emitted as ISO date strings, guarding against the YAML 1.1
// sexagesimal/date scalar-resolution pitfall (spec.md §4.1).
var dateStampedKeys = map[string]bool{
	"Version":                   true,
	"AWSTemplateFormatVersion":  true,
}

// Parse decodes raw structured text into a Document, preserving custom
// YAML tags as KindTag nodes. JSON input has no tag syntax of its own;
// Parse treats single-key objects whose key names a known intrinsic
// ("Ref", "Fn::...", or a "$"-prefixed macro) as tagged nodes too, so a
// document whose tags use those names round-trips through either wire
// format; other tag kinds (e.g. "GetAtt") dumped by DumpJSON come back
// from JSON as plain single-key mappings.
func Parse(b []byte, format Format) (*Document, error) {
	switch format {
	case FormatJSON:
		var v interface{}
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("document: parse json: %w", err)
		}
		return FromNativeWithTags(v), nil
	case FormatYAML, "":
		var node yaml.Node
		if err := yaml.Unmarshal(b, &node); err != nil {
			return nil, fmt.Errorf("document: parse yaml: %w", err)
		}
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return fromYAMLNode(node.Content[0])
	default:
		return nil, fmt.Errorf("document: unknown format %q", format)
	}
}

// DetectFormat infers a format from a location's file extension, the
// way spec.md §4.2 describes ("extension .yaml/.yml -> YAML; .json ->
// JSON; else raw string"). ok is false when the location carries
// neither extension and the caller should treat the payload as a raw
// string rather than a parsed Document.
func DetectFormat(nameOrExt string) (Format, bool) {
	ext := nameOrExt
	if i := strings.LastIndex(nameOrExt, "."); i >= 0 {
		ext = nameOrExt[i+1:]
	}
	switch strings.ToLower(ext) {
	case "yaml", "yml":
		return FormatYAML, true
	case "json":
		return FormatJSON, true
	default:
		return "", false
	}
}

func fromYAMLNode(n *yaml.Node) (*Document, error) {
	// A custom (non-core, non-"!!...") single-bang tag is a tagged node.
	if n.Tag != "" && n.Tag[0] == '!' && len(n.Tag) > 1 && n.Tag[1] != '!' {
		payload := &yaml.Node{
			Kind:    n.Kind,
			Content: n.Content,
			Value:   n.Value,
			Tag:     implicitTagFor(n),
		}
		inner, err := fromYAMLNode(payload)
		if err != nil {
			return nil, err
		}
		return Tag(strings.TrimPrefix(n.Tag, "!"), inner), nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.MappingNode:
		entries := make([]Entry, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			val, err := fromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if dateStampedKeys[key] && val.Kind == KindDate {
				val = String(val.Date.Format("2006-01-02"))
			}
			entries = append(entries, Entry{Key: key, Value: val})
		}
		return Map(entries...), nil
	case yaml.SequenceNode:
		seq := make([]*Document, len(n.Content))
		for i, item := range n.Content {
			v, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			seq[i] = v
		}
		return Seq(seq...), nil
	case yaml.ScalarNode:
		return scalarFromYAML(n)
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	default:
		return Null(), nil
	}
}

// implicitTagFor strips a custom tag down to the core tag of the node's
// kind so the payload of a tagged sequence/mapping decodes as a plain
// sequence/mapping instead of being treated as another custom tag of
// the same kind. A tagged scalar gets no tag, so its payload is kept as
// its raw string text (e.g. "!Ref 42" has the string payload "42").
func implicitTagFor(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "!!map"
	case yaml.SequenceNode:
		return "!!seq"
	default:
		return ""
	}
}

func scalarFromYAML(n *yaml.Node) (*Document, error) {
	switch n.Tag {
	case "!!null":
		return Null(), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, fmt.Errorf("document: bad bool scalar %q: %w", n.Value, err)
		}
		return Bool(b), nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("document: bad int scalar %q: %w", n.Value, err)
		}
		return Int(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("document: bad float scalar %q: %w", n.Value, err)
		}
		return &Document{Kind: KindFloat, Float: f}, nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, fmt.Errorf("document: bad timestamp scalar %q: %w", n.Value, err)
		}
		return &Document{Kind: KindDate, Date: t}, nil
	default:
		return String(n.Value), nil
	}
}

// Dump encodes a Document as YAML, rebuilding tag nodes as "!TagName"
// YAML tags.
func Dump(d *Document) ([]byte, error) {
	node := toYAMLNode(d)
	out, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("document: dump yaml: %w", err)
	}
	return out, nil
}

// DumpJSON encodes a Document as JSON, rendering tag nodes as the
// single-key object CloudFormation itself uses for intrinsic functions
// in JSON templates (e.g. !Ref X <-> {"Ref": X}).
func DumpJSON(d *Document) ([]byte, error) {
	out, err := json.MarshalIndent(d.Native(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("document: dump json: %w", err)
	}
	return out, nil
}

func toYAMLNode(d *Document) *yaml.Node {
	if d == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	switch d.Kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(d.Bool)}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(d.Int, 10)}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(d.Float, 'g', -1, 64)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.Str}
	case KindDate:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.Date.Format("2006-01-02")}
	case KindSeq:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, v := range d.Seq {
			n.Content = append(n.Content, toYAMLNode(v))
		}
		return n
	case KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range d.Map {
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}, toYAMLNode(e.Value))
		}
		return n
	case KindTag:
		inner := toYAMLNode(d.Tagged)
		inner.Tag = "!" + d.TagName
		return inner
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
