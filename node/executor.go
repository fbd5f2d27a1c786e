// Package node drives a Cardano node through its command-line interface.
// The Client translates typed requests into cardano-cli invocations and
// parses the results back into a stable schema; the Executor abstraction
// decides where those invocations actually run (local host or SSH).
package node

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command is a single external invocation held as an argv vector. Arguments
// are never joined into a shell string on the local path; the SSH path quotes
// each element individually.
type Command struct {
	Path string
	Args []string
}

// String renders the command for log output.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Executor runs commands and manages files on the host the Cardano node
// lives on. Implementations: Local (same host) and SSHExecutor (remote).
type Executor interface {
	// Run executes cmd and returns the captured output streams. A non-nil
	// error means the command could not run or exited non-zero; callers
	// must additionally treat non-empty stderr as failure.
	Run(ctx context.Context, cmd Command) (stdout, stderr string, err error)

	// ReadFile returns the contents of path on the node host.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile writes data to path on the node host with the given mode.
	WriteFile(ctx context.Context, path string, data []byte, perm fs.FileMode) error

	// RemoveFile deletes path on the node host.
	RemoveFile(ctx context.Context, path string) error

	// MkdirAll creates path and any missing parents on the node host.
	MkdirAll(ctx context.Context, path string) error

	// Download fetches url into path on the node host.
	Download(ctx context.Context, url, path string) error
}

// Local executes commands on the current host.
type Local struct {
	// Env holds extra KEY=VALUE pairs appended to the environment of every
	// command, typically the node socket path.
	Env []string
}

// Compile-time interface check.
var _ Executor = (*Local)(nil)

// NewLocal returns a local executor. socketPath, when non-empty, is exported
// as CARDANO_NODE_SOCKET_PATH to every command.
func NewLocal(socketPath string) *Local {
	l := &Local{}
	if socketPath != "" {
		l.Env = append(l.Env, "CARDANO_NODE_SOCKET_PATH="+socketPath)
	}
	return l
}

// Run executes cmd with the argv vector passed verbatim to the OS.
func (l *Local) Run(ctx context.Context, cmd Command) (string, string, error) {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Env = append(os.Environ(), l.Env...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	return stdout.String(), stderr.String(), err
}

// ReadFile returns the contents of a local file.
func (l *Local) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes a local file, creating parent directories as needed.
func (l *Local) WriteFile(_ context.Context, path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

// RemoveFile deletes a local file.
func (l *Local) RemoveFile(_ context.Context, path string) error {
	return os.Remove(path)
}

// MkdirAll creates a local directory tree.
func (l *Local) MkdirAll(_ context.Context, path string) error {
	return os.MkdirAll(path, 0700)
}

// Download fetches url into a local file. The request is bound to ctx.
func (l *Local) Download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("node: create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("node: fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("node: fetch %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("node: read %s: %w", url, err)
	}
	return l.WriteFile(ctx, path, data, 0600)
}
