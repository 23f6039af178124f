// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package document models the tree-shaped data documents the transform
// pipeline operates on: mappings, sequences, scalars, and tagged nodes,
// the way a YAML parser with custom-tag support would produce them.
package document

import (
	"fmt"
	"time"
)

// Kind discriminates the variant a Document node holds.
type Kind int

// The document node kinds. A Document is exactly one of these.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindDate
	KindSeq
	KindMap
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Entry is one key/value pair of a mapping node. Mappings preserve
// insertion order because output determinism matters even though no
// spec invariant requires it semantically.
type Entry struct {
	Key   string
	Value *Document
}

// Document is a tagged-union tree node: interior nodes are mappings,
// sequences, or tagged nodes; leaves are scalars. Exactly the fields
// matching Kind are meaningful; the rest are zero.
type Document struct {
	Kind Kind

	Bool  bool
	Int   int64
	Float float64
	Str   string
	Date  time.Time

	Seq []*Document
	Map []Entry

	// TagName is the tag kind without its leading '!' (e.g. "Ref",
	// "$include", "GetAtt"). Only meaningful when Kind == KindTag.
	TagName string
	Tagged  *Document
}

// Null returns a KindNull leaf.
func Null() *Document { return &Document{Kind: KindNull} }

// String returns a KindString leaf.
func String(s string) *Document { return &Document{Kind: KindString, Str: s} }

// Bool returns a KindBool leaf.
func Bool(b bool) *Document { return &Document{Kind: KindBool, Bool: b} }

// Int returns a KindInt leaf.
func Int(i int64) *Document { return &Document{Kind: KindInt, Int: i} }

// Map returns a KindMap node from the given entries, preserving order.
func Map(entries ...Entry) *Document { return &Document{Kind: KindMap, Map: entries} }

// Seq returns a KindSeq node.
func Seq(items ...*Document) *Document { return &Document{Kind: KindSeq, Seq: items} }

// Tag returns a KindTag node.
func Tag(name string, payload *Document) *Document {
	return &Document{Kind: KindTag, TagName: name, Tagged: payload}
}

// IsScalar reports whether d is a leaf value (not map/seq/tag).
func (d *Document) IsScalar() bool {
	switch d.Kind {
	case KindMap, KindSeq, KindTag:
		return false
	default:
		return true
	}
}

// Get returns the value bound to key in a mapping node, or nil if
// absent or d is not a mapping.
func (d *Document) Get(key string) (*Document, bool) {
	if d == nil || d.Kind != KindMap {
		return nil, false
	}
	for _, e := range d.Map {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set binds key to value in a mapping node, overwriting any existing
// binding in place (preserving its position) or appending a new entry.
func (d *Document) Set(key string, value *Document) error {
	if d.Kind != KindMap {
		return fmt.Errorf("document.Set: not a mapping node (kind %s)", d.Kind)
	}
	for i, e := range d.Map {
		if e.Key == key {
			d.Map[i].Value = value
			return nil
		}
	}
	d.Map = append(d.Map, Entry{Key: key, Value: value})
	return nil
}

// Delete removes key from a mapping node, if present.
func (d *Document) Delete(key string) {
	if d == nil || d.Kind != KindMap {
		return
	}
	out := d.Map[:0]
	for _, e := range d.Map {
		if e.Key != key {
			out = append(out, e)
		}
	}
	d.Map = out
}

// Clone performs a deep copy of d. Annotations are not copied — callers
// that clone a template for expansion must re-seed whatever annotation
// table they use.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{
		Kind:    d.Kind,
		Bool:    d.Bool,
		Int:     d.Int,
		Float:   d.Float,
		Str:     d.Str,
		Date:    d.Date,
		TagName: d.TagName,
	}
	if d.Seq != nil {
		c.Seq = make([]*Document, len(d.Seq))
		for i, v := range d.Seq {
			c.Seq[i] = v.Clone()
		}
	}
	if d.Map != nil {
		c.Map = make([]Entry, len(d.Map))
		for i, e := range d.Map {
			c.Map[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
		}
	}
	if d.Tagged != nil {
		c.Tagged = d.Tagged.Clone()
	}
	return c
}

// AsString returns the Go string held by a KindString leaf, and
// whether d was actually a string.
func (d *Document) AsString() (string, bool) {
	if d == nil || d.Kind != KindString {
		return "", false
	}
	return d.Str, true
}

// Native converts a Document into plain Go values (map[string]interface{},
// []interface{}, string, bool, int64, float64, nil) for interop with
// libraries that expect generic data (JSON schema validators, template
// helpers). Tag nodes are rendered as a single-key map {TagName: payload},
// mirroring how CloudFormation represents intrinsic functions in JSON.
func (d *Document) Native() interface{} {
	if d == nil {
		return nil
	}
	switch d.Kind {
	case KindNull:
		return nil
	case KindBool:
		return d.Bool
	case KindInt:
		return d.Int
	case KindFloat:
		return d.Float
	case KindString:
		return d.Str
	case KindDate:
		return d.Date.Format("2006-01-02")
	case KindSeq:
		out := make([]interface{}, len(d.Seq))
		for i, v := range d.Seq {
			out[i] = v.Native()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(d.Map))
		for _, e := range d.Map {
			out[e.Key] = e.Value.Native()
		}
		return out
	case KindTag:
		return map[string]interface{}{d.TagName: d.Tagged.Native()}
	default:
		return nil
	}
}

// FromNative builds a Document out of plain Go values as produced by
// encoding/json.Unmarshal into interface{} (map[string]interface{},
// []interface{}, string, bool, float64, nil) or by library callbacks
// that hand back the same shapes. No tag recognition is performed here;
// callers that need JSON intrinsic-function recognition use
// FromNativeWithTags.
func FromNative(v interface{}) *Document {
	return fromNative(v, nil)
}

// FromNativeWithTags is FromNative, additionally recognizing single-key
// objects whose key is "Ref", starts with "Fn::", or starts with "$" as
// tagged nodes — the JSON-side convention for intrinsic functions and
// macros that YAML expresses with "!Tag" syntax.
func FromNativeWithTags(v interface{}) *Document {
	return fromNative(v, isTagKey)
}

func isTagKey(key string) bool {
	if key == "Ref" {
		return true
	}
	if len(key) >= 4 && key[:4] == "Fn::" {
		return true
	}
	if len(key) >= 1 && key[0] == '$' {
		return true
	}
	return false
}

func fromNative(v interface{}, tagKey func(string) bool) *Document {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return &Document{Kind: KindFloat, Float: t}
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case []interface{}:
		seq := make([]*Document, len(t))
		for i, item := range t {
			seq[i] = fromNative(item, tagKey)
		}
		return Seq(seq...)
	case map[string]interface{}:
		if tagKey != nil && len(t) == 1 {
			for k, val := range t {
				if tagKey(k) {
					return Tag(k, fromNative(val, tagKey))
				}
			}
		}
		entries := make([]Entry, 0, len(t))
		for k, val := range t {
			entries = append(entries, Entry{Key: k, Value: fromNative(val, tagKey)})
		}
		return Map(entries...)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}
