// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package filehash implements the location.Handler for the "filehash"
// scheme (spec.md §4.2): "filehash:path" — a hex SHA-256 digest of a
// single file, or of the sorted listing of files under a directory.
package filehash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/tplforge/tplforge/pkg/location"
)

// Handler computes digests of local files or directory listings.
type Handler struct{}

// New creates a filehash location.Handler.
func New() *Handler { return &Handler{} }

// Scheme implements location.Handler.
func (h *Handler) Scheme() location.Scheme { return location.SchemeFileHash }

// Resolve implements location.Handler. Relative paths are joined
// against the directory of a file-scheme base, matching the file
// handler's own relative resolution.
func (h *Handler) Resolve(_ context.Context, payload string, base *location.Resolved) (*location.Resolved, error) {
	if payload == "" {
		return nil, fmt.Errorf("filehash: empty path")
	}
	path := payload
	if !filepath.IsAbs(path) && base != nil && base.Scheme == location.SchemeFile {
		path = filepath.Join(filepath.Dir(base.Payload), path)
	}
	return &location.Resolved{Scheme: location.SchemeFileHash, Payload: path}, nil
}

// Fetch implements location.Handler. It returns the hex digest as raw
// bytes, decoded as a plain string since Resolved.Format is unset.
func (h *Handler) Fetch(_ context.Context, resolved *location.Resolved) ([]byte, error) {
	info, err := os.Stat(resolved.Payload)
	if err != nil {
		return nil, fmt.Errorf("filehash: stat %s: %w", resolved.Payload, err)
	}
	sum := sha256.New()
	if info.IsDir() {
		var names []string
		err := filepath.WalkDir(resolved.Payload, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				names = append(names, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("filehash: walk %s: %w", resolved.Payload, err)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := hashFileInto(sum, name); err != nil {
				return nil, err
			}
		}
	} else {
		if err := hashFileInto(sum, resolved.Payload); err != nil {
			return nil, err
		}
	}
	return []byte(hex.EncodeToString(sum.Sum(nil))), nil
}

func hashFileInto(sum io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("filehash: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(sum, f); err != nil {
		return fmt.Errorf("filehash: read %s: %w", path, err)
	}
	return nil
}
