// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package gitloc implements the location.Handler for the "git" scheme
// (spec.md §4.2): "git:branch|describe|sha" — shells out to the git
// binary and trims the result. Named gitloc to avoid colliding with
// the teacher's go-git based pkg/git.
package gitloc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tplforge/tplforge/pkg/location"
)

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

type execRunner struct{ dir string }

func (r execRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	if dir == "" {
		dir = r.dir
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out, errBuf bytes.Buffer
	cmd.Stdout, cmd.Stderr = &out, &errBuf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, errBuf.String())
	}
	return out.String(), nil
}

// Handler resolves "branch", "describe" and "sha" against the git
// repository at RepoDir.
type Handler struct {
	RepoDir string
	runner  Runner
}

// New builds a git location.Handler that shells out in repoDir.
func New(repoDir string) *Handler {
	return &Handler{RepoDir: repoDir, runner: execRunner{dir: repoDir}}
}

// NewWithRunner is the test seam for Handler.
func NewWithRunner(repoDir string, r Runner) *Handler {
	return &Handler{RepoDir: repoDir, runner: r}
}

// Scheme implements location.Handler.
func (h *Handler) Scheme() location.Scheme { return location.SchemeGit }

// Resolve implements location.Handler.
func (h *Handler) Resolve(_ context.Context, payload string, _ *location.Resolved) (*location.Resolved, error) {
	switch payload {
	case "branch", "describe", "sha":
		return &location.Resolved{Scheme: location.SchemeGit, Payload: payload}, nil
	default:
		return nil, fmt.Errorf("git: unknown selector %q, want branch|describe|sha", payload)
	}
}

// Fetch implements location.Handler.
func (h *Handler) Fetch(ctx context.Context, resolved *location.Resolved) ([]byte, error) {
	var args []string
	switch resolved.Payload {
	case "branch":
		args = []string{"rev-parse", "--abbrev-ref", "HEAD"}
	case "describe":
		args = []string{"describe", "--tags", "--always"}
	case "sha":
		args = []string{"rev-parse", "HEAD"}
	}
	out, err := h.runner.Run(ctx, h.RepoDir, args...)
	if err != nil {
		return nil, fmt.Errorf("git: %s: %w", resolved.Payload, err)
	}
	return []byte(strings.TrimSpace(out)), nil
}
