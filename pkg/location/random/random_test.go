package random

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRejectsUnknownGenerator(t *testing.T) {
	h := New()
	_, err := h.Resolve(context.Background(), "bogus", nil)
	assert.Error(t, err)
}

func TestFetchDashedNameHasDashes(t *testing.T) {
	h := New()
	r, err := h.Resolve(context.Background(), "dashed-name", nil)
	require.NoError(t, err)
	b, err := h.Fetch(context.Background(), r)
	require.NoError(t, err)
	assert.Contains(t, string(b), "-")
}

func TestFetchNameStripsOnlyFirstDash(t *testing.T) {
	h := New()
	r, err := h.Resolve(context.Background(), "name", nil)
	require.NoError(t, err)
	b, err := h.Fetch(context.Background(), r)
	require.NoError(t, err)
	// A UUID has 4 dashes; stripping only the first leaves 3.
	assert.Equal(t, 3, strings.Count(string(b), "-"))
}

func TestFetchIntInRange(t *testing.T) {
	h := New()
	r, err := h.Resolve(context.Background(), "int", nil)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		b, err := h.Fetch(context.Background(), r)
		require.NoError(t, err)
		n, err := strconv.Atoi(string(b))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
		assert.Less(t, n, 1000)
	}
}
