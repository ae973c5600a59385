// Package gitops records workspace changes as git commits so every
// reconciliation run leaves an auditable trail.
package gitops

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Author identifies who a commit is attributed to.
type Author struct {
	Name  string
	Email string
}

// DefaultAuthor is used for commits made by the CLI itself.
var DefaultAuthor = Author{Name: "recon", Email: "recon@localhost"}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Init initializes a new git repository at dir.
func Init(dir string) error {
	if out, err := git(dir, DefaultAuthor, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	return nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Commit stages paths (relative to dir) and commits them. Returns the short
// commit hash.
func Commit(dir, message string, author Author, paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("git commit: no paths to stage")
	}

	args := append([]string{"add", "--"}, paths...)
	if out, err := git(dir, author, args...); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}

	if out, err := git(dir, author, "commit", "--quiet", "-m", message, "--author", author.String()); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	out, err := git(dir, author, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// git runs a git subcommand in dir. The committer identity is pinned to the
// author so commits work without a user-level git config.
func git(dir string, author Author, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+author.Name,
		"GIT_COMMITTER_EMAIL="+author.Email,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
