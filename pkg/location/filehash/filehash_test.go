package filehash

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tplforge/tplforge/pkg/location"
)

func TestFetchFileIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))

	h := New()
	r, err := h.Resolve(context.Background(), path, nil)
	require.NoError(t, err)

	b1, err := h.Fetch(context.Background(), r)
	require.NoError(t, err)
	b2, err := h.Fetch(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
	assert.Len(t, string(b1), 64)
}

func TestFetchDirHashesSortedListing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o600))

	h := New()
	r, err := h.Resolve(context.Background(), dir, nil)
	require.NoError(t, err)
	b, err := h.Fetch(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, string(b), 64)
}

func TestResolveJoinsRelativeToFileBase(t *testing.T) {
	h := New()
	base := &location.Resolved{Scheme: location.SchemeFile, Payload: "/a/b/root.yaml"}
	r, err := h.Resolve(context.Background(), "../c/child.txt", base)
	require.NoError(t, err)
	assert.Equal(t, "/a/c/child.txt", r.Payload)
}
