package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"
)

var (
	// ErrSessionExpired is returned when a session outlives its lease.
	ErrSessionExpired = errors.New("sandbox session expired")

	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = errors.New("sandbox session closed")
)

// sensitiveEnvPatterns are case-insensitive suffixes for environment
// variables that are excluded from command environments.
var sensitiveEnvPatterns = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always included regardless of filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.HasSuffix(upper, pattern) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if safeEnvVars[parts[0]] || !isSensitiveEnvVar(parts[0]) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// LocalSession runs sandbox operations on the local machine, scoped to a
// working directory. Isolation is assumed to be provided by the host.
type LocalSession struct {
	workingDir     string
	commandTimeout time.Duration
	expiresAt      time.Time // zero means no lease

	mu     sync.Mutex
	closed bool
}

// LocalSessionOption configures a LocalSession.
type LocalSessionOption func(*LocalSession)

// WithTTL sets the session lease. Calls after the lease expires fail with
// ErrSessionExpired.
func WithTTL(ttl time.Duration) LocalSessionOption {
	return func(s *LocalSession) {
		if ttl > 0 {
			s.expiresAt = time.Now().Add(ttl)
		}
	}
}

// WithCommandTimeout caps the duration of each RunCommand call.
func WithCommandTimeout(d time.Duration) LocalSessionOption {
	return func(s *LocalSession) {
		s.commandTimeout = d
	}
}

// NewLocalSession creates a local sandbox session rooted at workingDir,
// creating the directory if needed.
func NewLocalSession(workingDir string, opts ...LocalSessionOption) (*LocalSession, error) {
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}
	s := &LocalSession{
		workingDir:     workingDir,
		commandTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(workingDir, 0755); err != nil {
		return nil, fmt.Errorf("sandbox: create working directory: %w", err)
	}
	return s, nil
}

// WorkingDirectory returns the sandbox working directory.
func (s *LocalSession) WorkingDirectory() string {
	return s.workingDir
}

// Close tears the session down. Safe to call multiple times.
func (s *LocalSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// checkAlive verifies the session is usable.
func (s *LocalSession) checkAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		return ErrSessionExpired
	}
	return nil
}

func (s *LocalSession) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.workingDir, path)
}

// ReadFile returns the content of a file inside the sandbox.
func (s *LocalSession) ReadFile(path string) (string, error) {
	if err := s.checkAlive(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.resolvePath(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes a single file, creating parent directories as needed.
func (s *LocalSession) WriteFile(path, data string) error {
	if err := s.checkAlive(); err != nil {
		return err
	}
	resolved := s.resolvePath(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return fmt.Errorf("write %s: create directory: %w", path, err)
	}
	if err := os.WriteFile(resolved, []byte(data), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteFiles writes a batch of files. The batch is not atomic: an error
// reports the first failing entry, earlier writes stand.
func (s *LocalSession) WriteFiles(files []FileEntry) error {
	for _, f := range files {
		if err := s.WriteFile(f.Path, f.Data); err != nil {
			return err
		}
	}
	return nil
}

// RunCommand runs one shell command in the sandbox working directory. The
// command's exit code is captured, not converted to an error.
func (s *LocalSession) RunCommand(ctx context.Context, command string) (*CommandResult, error) {
	if err := s.checkAlive(); err != nil {
		return nil, err
	}

	if s.commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.commandTimeout)
		defer cancel()
	}

	shell := "/bin/bash"
	shellArg := "-c"
	if runtime.GOOS == "windows" {
		shell = "cmd.exe"
		shellArg = "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = s.workingDir
	// Process group so a timed-out command's children die with it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = filterEnvironment()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &CommandResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: duration.Milliseconds(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			return result, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("run command: %w", err)
	}

	return result, nil
}
