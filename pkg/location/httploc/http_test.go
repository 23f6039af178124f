package httploc

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tplforge/tplforge/pkg/location"
)

type fakeClient struct {
	gotURL string
	status int
	body   string
	err    error
}

func (f *fakeClient) Do(req *http.Request) (*http.Response, error) {
	f.gotURL = req.URL.String()
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = 200
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestResolveRebuildsURL(t *testing.T) {
	h := NewWithClient(&fakeClient{})
	r, err := h.Resolve(context.Background(), "//example.com/values.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "//example.com/values.yaml", r.Payload)
	assert.Equal(t, location.FormatFromExtension("values.yaml"), r.Format)
}

func TestFetchGetsURLAndBody(t *testing.T) {
	fc := &fakeClient{body: "hello"}
	h := NewWithClient(fc)
	b, err := h.Fetch(context.Background(), &location.Resolved{Payload: "//example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.Equal(t, "http://example.com/x", fc.gotURL)
}

func TestFetchErrorsOnHTTPStatus(t *testing.T) {
	fc := &fakeClient{status: 404}
	h := NewWithClient(fc)
	_, err := h.Fetch(context.Background(), &location.Resolved{Payload: "//example.com/missing"})
	assert.Error(t, err)
}
