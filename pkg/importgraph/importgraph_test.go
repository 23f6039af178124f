package importgraph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/location"
)

// fakeFileHandler serves canned YAML content keyed by payload, so
// tests can drive the Loader without touching a real filesystem.
type fakeFileHandler struct {
	content map[string]string
}

func (f *fakeFileHandler) Scheme() location.Scheme { return location.SchemeFile }

func (f *fakeFileHandler) Resolve(_ context.Context, payload string, _ *location.Resolved) (*location.Resolved, error) {
	return &location.Resolved{Scheme: location.SchemeFile, Payload: payload, Format: document.FormatYAML}, nil
}

func (f *fakeFileHandler) Fetch(_ context.Context, resolved *location.Resolved) ([]byte, error) {
	body, ok := f.content[resolved.Payload]
	if !ok {
		return nil, assert.AnError
	}
	return []byte(body), nil
}

type noopInterpolator struct{}

func (noopInterpolator) Interpolate(tmpl string, _ map[string]*document.Document) (string, error) {
	return tmpl, nil
}

// literalInterpolator implements a narrow "{{name}}" substitution
// against the partial environment, enough to exercise import location
// interpolation without depending on pkg/interpolate.
type literalInterpolator struct{}

func (literalInterpolator) Interpolate(tmpl string, env map[string]*document.Document) (string, error) {
	out := tmpl
	for k, v := range env {
		s, ok := v.AsString()
		if !ok {
			continue
		}
		out = strings.ReplaceAll(out, "{{"+k+"}}", s)
	}
	return out, nil
}

func newLoader(content map[string]string) *location.Loader {
	return location.NewLoader(&fakeFileHandler{content: content})
}

func TestWalkBindsImportsIntoEnvValues(t *testing.T) {
	loader := newLoader(map[string]string{"child.yaml": "a: 1\n"})
	ann := document.NewAnnotations()
	w := New(loader, ann, noopInterpolator{})

	root := document.Map(
		document.Entry{Key: "$imports", Value: document.Map(document.Entry{Key: "cfg", Value: document.String("child.yaml")})},
		document.Entry{Key: "Message", Value: document.String("hi")},
	)

	require.NoError(t, w.Walk(context.Background(), root, nil))

	env, ok := ann.EnvValues(root)
	require.True(t, ok)
	require.Contains(t, env, "cfg")
	v, _ := env["cfg"].Get("a")
	n, _ := v.AsString()
	_ = n
	assert.Equal(t, int64(1), env["cfg"].Map[0].Value.Int)
	require.Len(t, w.Records, 1)
	assert.Equal(t, "cfg", w.Records[0].Key)
	assert.Equal(t, "child.yaml", w.Records[0].From)
	assert.NotEmpty(t, w.Records[0].SHA256Digest)
}

func TestWalkDetectsDuplicateNameAcrossImportsAndDefs(t *testing.T) {
	loader := newLoader(map[string]string{"child.yaml": "a: 1\n"})
	ann := document.NewAnnotations()
	w := New(loader, ann, noopInterpolator{})

	root := document.Map(
		document.Entry{Key: "$imports", Value: document.Map(document.Entry{Key: "cfg", Value: document.String("child.yaml")})},
		document.Entry{Key: "$defs", Value: document.Map(document.Entry{Key: "cfg", Value: document.String("dup")})},
	)

	err := w.Walk(context.Background(), root, nil)
	assert.Error(t, err)
}

func TestWalkDetectsDuplicateNameAcrossParamsAndDefs(t *testing.T) {
	loader := newLoader(nil)
	ann := document.NewAnnotations()
	w := New(loader, ann, noopInterpolator{})

	root := document.Map(
		document.Entry{Key: "$defs", Value: document.Map(document.Entry{Key: "N", Value: document.String("x")})},
		document.Entry{Key: "$params", Value: document.Seq(
			document.Map(document.Entry{Key: "Name", Value: document.String("N")}),
		)},
	)

	err := w.Walk(context.Background(), root, nil)
	assert.Error(t, err)
}

// TestWalkInterpolatesImportLocation exercises spec.md §4.3: a later
// $imports location containing "{{name}}" is interpolated against the
// partial environment bound so far (earlier entries of the same
// $imports mapping, in declaration order) before it is loaded.
func TestWalkInterpolatesImportLocation(t *testing.T) {
	loader := newLoader(map[string]string{
		"region.yaml":           "us-east-1\n",
		"us-east-1-config.yaml": "a: 1\n",
	})
	ann := document.NewAnnotations()
	w := New(loader, ann, literalInterpolator{})

	root := document.Map(
		document.Entry{Key: "$imports", Value: document.Map(
			document.Entry{Key: "region", Value: document.String("region.yaml")},
			document.Entry{Key: "cfg", Value: document.String("{{region}}-config.yaml")},
		)},
	)

	require.NoError(t, w.Walk(context.Background(), root, nil))

	env, ok := ann.EnvValues(root)
	require.True(t, ok)
	region, _ := env["region"].AsString()
	assert.Equal(t, "us-east-1", region)

	require.Contains(t, env, "cfg")
	assert.Equal(t, int64(1), env["cfg"].Map[0].Value.Int)

	require.Len(t, w.Records, 2)
	assert.Equal(t, "region", w.Records[0].Key)
	assert.Equal(t, "cfg", w.Records[1].Key)
	assert.Equal(t, "{{region}}-config.yaml", w.Records[1].From, "Record.From keeps the uninterpolated location expression")
}

func TestWalkFindsNestedTemplateParams(t *testing.T) {
	loader := newLoader(nil)
	ann := document.NewAnnotations()
	w := New(loader, ann, noopInterpolator{})

	template := document.Map(
		document.Entry{Key: "$params", Value: document.Seq(
			document.Map(document.Entry{Key: "Name", Value: document.String("N")}),
		)},
	)
	root := document.Map(
		document.Entry{Key: "$defs", Value: document.Map(document.Entry{Key: "T", Value: template})},
	)

	require.NoError(t, w.Walk(context.Background(), root, nil))
	_, ok := ann.EnvValues(template)
	assert.True(t, ok)
}

func TestWalkMaxDepthGuard(t *testing.T) {
	loader := newLoader(map[string]string{"self.yaml": "$imports:\n  next: self.yaml\n"})
	ann := document.NewAnnotations()
	w := New(loader, ann, noopInterpolator{})

	root := document.Map(
		document.Entry{Key: "$imports", Value: document.Map(document.Entry{Key: "a", Value: document.String("self.yaml")})},
	)
	err := w.Walk(context.Background(), root, nil)
	assert.Error(t, err)
}
