// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package ssm implements the location.Handler pair for the "ssm" and
// "ssm-path" schemes (spec.md §4.2): fetching a single decrypted
// parameter, or all parameters under a prefix as a relative-name->value
// mapping.
package ssm

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/location"
)

// API is the subset of the AWS SDK SSM client the handlers need.
type API interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

func newClient(ctx context.Context) (API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("ssm: load AWS config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// ParamHandler implements the "ssm" scheme.
type ParamHandler struct{ client API }

// NewParamHandler builds the "ssm" location.Handler.
func NewParamHandler(ctx context.Context) (*ParamHandler, error) {
	c, err := newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &ParamHandler{client: c}, nil
}

// NewParamHandlerWithClient is the test seam for ParamHandler.
func NewParamHandlerWithClient(c API) *ParamHandler { return &ParamHandler{client: c} }

// Scheme implements location.Handler.
func (h *ParamHandler) Scheme() location.Scheme { return location.SchemeSSM }

// Resolve implements location.Handler.
func (h *ParamHandler) Resolve(_ context.Context, payload string, _ *location.Resolved) (*location.Resolved, error) {
	name, format := location.SplitFormatSuffix(payload)
	if name == "" {
		return nil, fmt.Errorf("ssm: empty parameter name")
	}
	return &location.Resolved{Scheme: location.SchemeSSM, Payload: name, Format: format}, nil
}

// Fetch implements location.Handler.
func (h *ParamHandler) Fetch(ctx context.Context, resolved *location.Resolved) ([]byte, error) {
	out, err := h.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &resolved.Payload,
		WithDecryption: boolPtr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("ssm: get parameter %s: %w", resolved.Payload, err)
	}
	return []byte(*out.Parameter.Value), nil
}

// PathHandler implements the "ssm-path" scheme.
type PathHandler struct{ client API }

// NewPathHandler builds the "ssm-path" location.Handler.
func NewPathHandler(ctx context.Context) (*PathHandler, error) {
	c, err := newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &PathHandler{client: c}, nil
}

// NewPathHandlerWithClient is the test seam for PathHandler.
func NewPathHandlerWithClient(c API) *PathHandler { return &PathHandler{client: c} }

// Scheme implements location.Handler.
func (h *PathHandler) Scheme() location.Scheme { return location.SchemeSSMPath }

// Resolve implements location.Handler. The prefix is normalised to end
// with "/" (spec.md §8 testable property 9).
func (h *PathHandler) Resolve(_ context.Context, payload string, _ *location.Resolved) (*location.Resolved, error) {
	prefix := payload
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &location.Resolved{Scheme: location.SchemeSSMPath, Payload: prefix, Format: document.FormatYAML}, nil
}

// Fetch implements location.Handler. It returns a YAML-encoded mapping
// of relative-name -> value (the prefix stripped from each returned
// parameter name), decodable uniformly with every other scheme.
func (h *PathHandler) Fetch(ctx context.Context, resolved *location.Resolved) ([]byte, error) {
	entries := make([]document.Entry, 0)
	var nextToken *string
	for {
		out, err := h.client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           &resolved.Payload,
			Recursive:      boolPtr(true),
			WithDecryption: boolPtr(true),
			NextToken:      nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("ssm-path: get parameters by path %s: %w", resolved.Payload, err)
		}
		for _, p := range out.Parameters {
			relName := strings.TrimPrefix(*p.Name, resolved.Payload)
			entries = append(entries, document.Entry{Key: relName, Value: document.String(*p.Value)})
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	doc := document.Map(entries...)
	return document.Dump(doc)
}

func boolPtr(b bool) *bool { return &b }
