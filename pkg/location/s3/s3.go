// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package s3 implements the location.Handler for the "s3" scheme
// (spec.md §4.2): "s3://bucket/key", with relative keys resolved
// relative to the base location's key directory.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tplforge/tplforge/pkg/location"
)

// API is the subset of the AWS SDK S3 client the handler needs,
// narrowed for testability the way resourcehandlers.ResourceHandler is
// narrowed in the teacher.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Handler resolves and reads objects from S3.
type Handler struct {
	client API
}

// New builds an s3 location.Handler using the default AWS config
// credential chain.
func New(ctx context.Context) (*Handler, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3: load AWS config: %w", err)
	}
	return &Handler{client: s3.NewFromConfig(cfg)}, nil
}

// NewWithClient builds an s3 location.Handler around a caller-supplied
// client — the test seam.
func NewWithClient(client API) *Handler {
	return &Handler{client: client}
}

// Scheme implements location.Handler.
func (h *Handler) Scheme() location.Scheme { return location.SchemeS3 }

// Resolve implements location.Handler.
func (h *Handler) Resolve(_ context.Context, payload string, base *location.Resolved) (*location.Resolved, error) {
	p, format := location.SplitFormatSuffix(payload)

	var bucket, key string
	if rest, ok := stripAbsolutePrefix(p); ok {
		bucket, key = splitBucketKey(rest)
	} else {
		if base == nil || base.Scheme != location.SchemeS3 {
			return nil, fmt.Errorf("s3: relative key %q has no s3 base to resolve against", payload)
		}
		baseBucket, baseKey := splitBucketKey(base.Payload)
		bucket = baseBucket
		key = path.Join(path.Dir(baseKey), p)
	}
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3: invalid location %q, expected s3://bucket/key", payload)
	}
	if format == "" {
		format = location.FormatFromExtension(key)
	}
	return &location.Resolved{Scheme: location.SchemeS3, Payload: bucket + "/" + key, Format: format}, nil
}

// Fetch implements location.Handler.
func (h *Handler) Fetch(ctx context.Context, resolved *location.Resolved) ([]byte, error) {
	bucket, key := splitBucketKey(resolved.Payload)
	out, err := h.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("s3: get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: read s3://%s/%s: %w", bucket, key, err)
	}
	return b, nil
}

func stripAbsolutePrefix(p string) (string, bool) {
	if strings.HasPrefix(p, "//") {
		return strings.TrimPrefix(p, "//"), true
	}
	return p, false
}

func splitBucketKey(p string) (bucket, key string) {
	idx := strings.Index(p, "/")
	if idx < 0 {
		return p, ""
	}
	return p[:idx], p[idx+1:]
}
