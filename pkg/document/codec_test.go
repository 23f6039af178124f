// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMapAndScalars(t *testing.T) {
	d, err := Parse([]byte("Name: hello\nCount: 3\nEnabled: true\n"), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, KindMap, d.Kind)

	v, ok := d.Get("Name")
	require.True(t, ok)
	assert.Equal(t, "hello", v.Str)

	v, ok = d.Get("Count")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Int)

	v, ok = d.Get("Enabled")
	require.True(t, ok)
	assert.True(t, v.Bool)
}

func TestParseTaggedNode(t *testing.T) {
	d, err := Parse([]byte("X: !Ref Bucket\n"), FormatYAML)
	require.NoError(t, err)
	v, ok := d.Get("X")
	require.True(t, ok)
	require.Equal(t, KindTag, v.Kind)
	assert.Equal(t, "Ref", v.TagName)
	assert.Equal(t, "Bucket", v.Tagged.Str)
}

func TestParseTaggedMappingPayload(t *testing.T) {
	d, err := Parse([]byte("X: !$include\n  name: cfg\n  path: a.b\n"), FormatYAML)
	require.NoError(t, err)
	v, ok := d.Get("X")
	require.True(t, ok)
	require.Equal(t, KindTag, v.Kind)
	assert.Equal(t, "$include", v.TagName)
	require.Equal(t, KindMap, v.Tagged.Kind)
}

func TestDateStampingOnVersionKeys(t *testing.T) {
	d, err := Parse([]byte("AWSTemplateFormatVersion: 2010-09-09\n"), FormatYAML)
	require.NoError(t, err)
	v, ok := d.Get("AWSTemplateFormatVersion")
	require.True(t, ok)
	require.Equal(t, KindString, v.Kind)
	assert.Equal(t, "2010-09-09", v.Str)
}

func TestDumpRoundTripIdentityUpToOrdering(t *testing.T) {
	src := []byte("A: 1\nB: two\nC:\n  - x\n  - y\n")
	d, err := Parse(src, FormatYAML)
	require.NoError(t, err)
	out, err := Dump(d)
	require.NoError(t, err)
	d2, err := Parse(out, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, d.Native(), d2.Native())
}

func TestDumpPreservesTags(t *testing.T) {
	d := Map(Entry{Key: "X", Value: Tag("Ref", String("Bucket"))})
	out, err := Dump(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), "!Ref Bucket")
}

func TestParseJSONRecognizesIntrinsicTags(t *testing.T) {
	d, err := Parse([]byte(`{"X": {"Ref": "Bucket"}}`), FormatJSON)
	require.NoError(t, err)
	v, ok := d.Get("X")
	require.True(t, ok)
	require.Equal(t, KindTag, v.Kind)
	assert.Equal(t, "Ref", v.TagName)
}

func TestDetectFormat(t *testing.T) {
	f, ok := DetectFormat("foo/bar.yaml")
	require.True(t, ok)
	assert.Equal(t, FormatYAML, f)

	f, ok = DetectFormat("foo/bar.json")
	require.True(t, ok)
	assert.Equal(t, FormatJSON, f)

	_, ok = DetectFormat("foo/bar.txt")
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	orig := Map(Entry{Key: "A", Value: Seq(String("x"))})
	clone := orig.Clone()
	clone.Map[0].Value.Seq[0].Str = "y"
	assert.Equal(t, "x", orig.Map[0].Value.Seq[0].Str)
	assert.Equal(t, "y", clone.Map[0].Value.Seq[0].Str)
}
