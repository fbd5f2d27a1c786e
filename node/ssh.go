package node

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig describes how to reach the host running the Cardano node.
type SSHConfig struct {
	// Host is the SSH endpoint as host:port.
	Host string

	// User is the login name.
	User string

	// KeyFile is a PEM private key used for public-key authentication.
	// When empty, Password authentication is used instead.
	KeyFile string

	// Password authenticates when KeyFile is empty.
	Password string

	// KnownHostsFile enables host key verification against the given file.
	// When empty the host key is not verified.
	KnownHostsFile string
}

// SSHExecutor runs commands on a remote host over a single SSH connection.
// The connection is dialed once and reused for every call until Close;
// each call opens its own session.
type SSHExecutor struct {
	client *ssh.Client
	env    string
}

// Compile-time interface check.
var _ Executor = (*SSHExecutor)(nil)

// DialSSH connects to the remote host. socketPath, when non-empty, is
// exported as CARDANO_NODE_SOCKET_PATH to every remote command.
func DialSSH(cfg SSHConfig, socketPath string) (*SSHExecutor, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("node: read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("node: parse ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	} else {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	hostKeys := ssh.InsecureIgnoreHostKey() // nolint:gosec
	if cfg.KnownHostsFile != "" {
		callback, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("node: load known hosts: %w", err)
		}
		hostKeys = callback
	}

	client, err := ssh.Dial("tcp", cfg.Host, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrExecFailed, cfg.Host, err)
	}

	e := &SSHExecutor{client: client}
	if socketPath != "" {
		e.env = "CARDANO_NODE_SOCKET_PATH=" + shellQuote(socketPath) + " "
	}
	return e, nil
}

// Close releases the SSH connection.
func (e *SSHExecutor) Close() error { return e.client.Close() }

// Run executes cmd remotely. Each argument is quoted individually; no
// caller-supplied string is ever interpreted by the remote shell.
func (e *SSHExecutor) Run(ctx context.Context, cmd Command) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := e.session(ctx, e.env+joinCommand(cmd), nil, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// ReadFile returns the contents of a remote file.
func (e *SSHExecutor) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	if err := e.session(ctx, "cat "+shellQuote(path), nil, &stdout, &stderr); err != nil {
		return nil, fmt.Errorf("node: read %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// WriteFile writes a remote file through the session's stdin.
func (e *SSHExecutor) WriteFile(ctx context.Context, path string, data []byte, perm fs.FileMode) error {
	var stderr bytes.Buffer
	line := fmt.Sprintf("mkdir -p %s && cat > %s && chmod %o %s",
		shellQuote(parentDir(path)), shellQuote(path), perm.Perm(), shellQuote(path))
	if err := e.session(ctx, line, bytes.NewReader(data), nil, &stderr); err != nil {
		return fmt.Errorf("node: write %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// RemoveFile deletes a remote file.
func (e *SSHExecutor) RemoveFile(ctx context.Context, path string) error {
	var stderr bytes.Buffer
	if err := e.session(ctx, "rm -f "+shellQuote(path), nil, nil, &stderr); err != nil {
		return fmt.Errorf("node: remove %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// MkdirAll creates a remote directory tree.
func (e *SSHExecutor) MkdirAll(ctx context.Context, path string) error {
	var stderr bytes.Buffer
	if err := e.session(ctx, "mkdir -p "+shellQuote(path), nil, nil, &stderr); err != nil {
		return fmt.Errorf("node: mkdir %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Download fetches url into a remote file using curl on the remote host.
func (e *SSHExecutor) Download(ctx context.Context, url, path string) error {
	var stderr bytes.Buffer
	line := "curl -sSL -o " + shellQuote(path) + " " + shellQuote(url)
	if err := e.session(ctx, line, nil, nil, &stderr); err != nil {
		return fmt.Errorf("node: fetch %s: %w: %s", url, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// session runs one remote command line, honouring ctx cancellation by
// tearing the session down.
func (e *SSHExecutor) session(ctx context.Context, line string, stdin *bytes.Reader, stdout, stderr *bytes.Buffer) error {
	sess, err := e.client.NewSession()
	if err != nil {
		return fmt.Errorf("%w: new session: %v", ErrExecFailed, err)
	}
	defer func() { _ = sess.Close() }()

	if stdin != nil {
		sess.Stdin = stdin
	}
	if stdout != nil {
		sess.Stdout = stdout
	}
	if stderr != nil {
		sess.Stderr = stderr
	}

	done := make(chan error, 1)
	go func() { done <- sess.Run(line) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()
		return ctx.Err()
	}
}

// parentDir returns the directory portion of a remote path. Remote paths are
// always slash-separated regardless of the local OS.
func parentDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "."
	}
	return path[:idx]
}

// joinCommand renders an argv vector as a single shell line with every
// element quoted.
func joinCommand(cmd Command) string {
	parts := make([]string, 0, len(cmd.Args)+1)
	parts = append(parts, shellQuote(cmd.Path))
	for _, a := range cmd.Args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// shellQuote single-quotes s unless it consists entirely of characters safe
// to pass to a POSIX shell unquoted.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if isShellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// isShellSafe reports whether every byte of s is in the unquoted-safe set.
func isShellSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case strings.IndexByte("@%+=:,./-_#", c) >= 0:
		default:
			return false
		}
	}
	return true
}
