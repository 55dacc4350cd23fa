package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination commits the snapshot into a local clone, keeping a
// history of dashboard state. Pushing is optional.
type GitDestination struct {
	repo   string // path to the local clone
	file   string // file path within the repo
	branch string
	push   bool
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone; when push is set every commit is pushed to origin.
func NewGitDestination(repo, file, branch string, push bool) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch, push: push}
}

// Write replaces the file, then commits and optionally pushes when its
// content changed.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if _, err := d.git(ctx, "add", d.file); err != nil {
		return err
	}
	// Exit status 0 means nothing is staged.
	if _, err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}
	if _, err := d.git(ctx, "commit", "--quiet", "-m", "snapshot: update sessions"); err != nil {
		return err
	}
	if d.push {
		if _, err := d.git(ctx, "push", "--quiet", "origin", d.branch); err != nil {
			return err
		}
	}
	return nil
}

// String identifies the destination in logs.
func (d *GitDestination) String() string {
	return "git:" + filepath.Join(d.repo, d.file) + "@" + d.branch
}

func (d *GitDestination) git(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return out.String(), nil
}
