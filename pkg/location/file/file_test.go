package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tplforge/tplforge/pkg/location"
)

func TestResolveAbsoluteAndFormat(t *testing.T) {
	h := New()
	r, err := h.Resolve(context.Background(), "/tmp/x/values.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x/values.yaml", r.Payload)
	assert.Equal(t, location.FormatFromExtension("values.yaml"), r.Format)
}

func TestResolveRelativeToFileBase(t *testing.T) {
	h := New()
	base := &location.Resolved{Scheme: location.SchemeFile, Payload: "/a/b/root.yaml"}
	r, err := h.Resolve(context.Background(), "../c/child.yaml", base)
	require.NoError(t, err)
	assert.Equal(t, "/a/c/child.yaml", r.Payload)
}

func TestResolveFormatSuffixOverridesExtension(t *testing.T) {
	h := New()
	r, err := h.Resolve(context.Background(), "/tmp/x/data.txt:yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x/data.txt", r.Payload)
	assert.Equal(t, location.FormatFromExtension("data.yaml"), r.Format)
}

func TestFetchReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	h := New()
	b, err := h.Fetch(context.Background(), &location.Resolved{Scheme: location.SchemeFile, Payload: path})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestFetchMissingFileErrors(t *testing.T) {
	h := New()
	_, err := h.Fetch(context.Background(), &location.Resolved{Scheme: location.SchemeFile, Payload: "/nonexistent/nope"})
	assert.Error(t, err)
}
