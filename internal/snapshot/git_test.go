package snapshot

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, dir string, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
	return string(out)
}

// newClone returns a working copy of a fresh bare repo with one commit on main.
func newClone(t *testing.T) (remote, repo string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}

	remote = t.TempDir()
	run(t, remote, "git", "init", "--quiet", "--bare")

	work := t.TempDir()
	run(t, work, "git", "clone", "--quiet", remote, "repo")
	repo = filepath.Join(work, "repo")
	run(t, repo, "git", "config", "user.email", "dash@example.com")
	run(t, repo, "git", "config", "user.name", "Dash")
	run(t, repo, "git", "symbolic-ref", "HEAD", "refs/heads/main")

	if err := os.WriteFile(filepath.Join(repo, ".gitkeep"), nil, 0o644); err != nil {
		t.Fatalf("write .gitkeep: %v", err)
	}
	run(t, repo, "git", "add", ".")
	run(t, repo, "git", "commit", "--quiet", "-m", "init")
	run(t, repo, "git", "push", "--quiet", "origin", "main")
	return remote, repo
}

func commitCount(t *testing.T, dir, ref string) int {
	t.Helper()
	return len(strings.Fields(run(t, dir, "git", "rev-list", ref)))
}

func TestGitDestination_CommitsOnChange(t *testing.T) {
	_, repo := newClone(t)
	dest := NewGitDestination(repo, "state/sessions.json", "main", false)
	ctx := context.Background()

	data1 := []byte(`[{"directory":"/a"}]` + "\n")
	if err := dest.Write(ctx, data1); err != nil {
		t.Fatalf("first write: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(repo, "state", "sessions.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(data1) {
		t.Fatalf("content = %q", got)
	}
	if n := commitCount(t, repo, "HEAD"); n != 2 {
		t.Fatalf("commits = %d, want 2", n)
	}

	// Same content: no new commit.
	if err := dest.Write(ctx, data1); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if n := commitCount(t, repo, "HEAD"); n != 2 {
		t.Fatalf("commits after unchanged write = %d, want 2", n)
	}

	if err := dest.Write(ctx, []byte("[]\n")); err != nil {
		t.Fatalf("third write: %v", err)
	}
	if n := commitCount(t, repo, "HEAD"); n != 3 {
		t.Fatalf("commits after change = %d, want 3", n)
	}
}

func TestGitDestination_Push(t *testing.T) {
	remote, repo := newClone(t)
	dest := NewGitDestination(repo, "sessions.json", "main", true)

	if err := dest.Write(context.Background(), []byte("[]\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if n := commitCount(t, remote, "main"); n != 2 {
		t.Fatalf("remote commits = %d, want 2", n)
	}
}

func TestGitDestination_BadBranch(t *testing.T) {
	_, repo := newClone(t)
	dest := NewGitDestination(repo, "sessions.json", "no-such-branch", false)

	err := dest.Write(context.Background(), []byte("[]\n"))
	if err == nil {
		t.Fatal("expected error for a missing branch")
	}
	if !strings.Contains(err.Error(), "git checkout") {
		t.Errorf("error = %v", err)
	}
}

func TestGitDestination_String(t *testing.T) {
	d := NewGitDestination("/srv/state", "sessions.json", "main", false)
	if got := d.String(); got != "git:/srv/state/sessions.json@main" {
		t.Errorf("String() = %q", got)
	}
}
