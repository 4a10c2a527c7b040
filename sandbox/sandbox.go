// Package sandbox provides the isolated execution environment the tools run
// against: file reads/writes and shell commands scoped to a working
// directory, behind a session with a fixed time-to-live.
package sandbox

import "context"

// FileEntry is one file in a batch write.
type FileEntry struct {
	Path string `json:"path"`
	Data string `json:"data"`
}

// CommandResult holds the result of a command execution. A non-zero exit
// code is a valid result, not an error; only transport or availability
// failures surface as errors from RunCommand.
type CommandResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// Session is the call contract against the sandbox. A session is created
// once per process with a fixed time-to-live and torn down on exit; calls
// against an expired or closed session fail with ErrSessionExpired or
// ErrSessionClosed rather than hanging.
type Session interface {
	// ReadFile returns the content of a file inside the sandbox.
	ReadFile(path string) (string, error)

	// WriteFile writes a single file, creating parent directories as needed.
	WriteFile(path, data string) error

	// WriteFiles writes a batch of files.
	WriteFiles(files []FileEntry) error

	// RunCommand runs one shell command in the sandbox working directory.
	RunCommand(ctx context.Context, command string) (*CommandResult, error)

	// WorkingDirectory returns the sandbox working directory.
	WorkingDirectory() string

	// Close tears the session down. Safe to call multiple times.
	Close() error
}
