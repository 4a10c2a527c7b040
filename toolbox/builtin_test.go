package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/martinemde/sandchat/sandbox"
)

// fakeSession is an in-memory sandbox.Session.
type fakeSession struct {
	files    map[string]string
	commands []string
	result   sandbox.CommandResult
	runErr   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{files: make(map[string]string)}
}

func (s *fakeSession) ReadFile(path string) (string, error) {
	data, ok := s.files[path]
	if !ok {
		return "", fmt.Errorf("read %s: no such file", path)
	}
	return data, nil
}

func (s *fakeSession) WriteFile(path, data string) error {
	s.files[path] = data
	return nil
}

func (s *fakeSession) WriteFiles(files []sandbox.FileEntry) error {
	for _, f := range files {
		s.files[f.Path] = f.Data
	}
	return nil
}

func (s *fakeSession) RunCommand(ctx context.Context, command string) (*sandbox.CommandResult, error) {
	s.commands = append(s.commands, command)
	if s.runErr != nil {
		return nil, s.runErr
	}
	res := s.result
	return &res, nil
}

func (s *fakeSession) WorkingDirectory() string { return "/tmp/fake" }
func (s *fakeSession) Close() error             { return nil }

func sandboxExecutor(t *testing.T, session sandbox.Session) *Executor {
	t.Helper()
	reg := NewRegistry()
	if err := RegisterSandboxTools(reg, session); err != nil {
		t.Fatalf("RegisterSandboxTools failed: %v", err)
	}
	return NewExecutor(reg)
}

func TestRegisterSandboxTools(t *testing.T) {
	reg := NewRegistry()
	if err := RegisterSandboxTools(reg, newFakeSession()); err != nil {
		t.Fatalf("RegisterSandboxTools failed: %v", err)
	}

	want := []string{"read_file", "write_file", "write_files", "run_commands"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("got %d tools, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tool[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadFileTool(t *testing.T) {
	session := newFakeSession()
	session.files["main.py"] = "print('hi')"
	exec := sandboxExecutor(t, session)

	res := exec.Execute(context.Background(), "read_file", json.RawMessage(`{"path":"main.py"}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res.Content != "print('hi')" {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestReadFileToolMissing(t *testing.T) {
	exec := sandboxExecutor(t, newFakeSession())

	res := exec.Execute(context.Background(), "read_file", json.RawMessage(`{"path":"nope.txt"}`))
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(res.Content, "nope.txt") {
		t.Errorf("Content = %q, want path in error", res.Content)
	}
}

func TestReadFileToolMissingPath(t *testing.T) {
	exec := sandboxExecutor(t, newFakeSession())

	res := exec.Execute(context.Background(), "read_file", json.RawMessage(`{}`))
	if !res.IsError {
		t.Fatal("expected error result for empty path")
	}
}

func TestWriteFileTool(t *testing.T) {
	session := newFakeSession()
	exec := sandboxExecutor(t, session)

	res := exec.Execute(context.Background(), "write_file",
		json.RawMessage(`{"path":"app.py","data":"x = 1"}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res.Content != "File created successfully at app.py" {
		t.Errorf("Content = %q", res.Content)
	}
	if session.files["app.py"] != "x = 1" {
		t.Errorf("file contents = %q", session.files["app.py"])
	}
}

func TestWriteFilesTool(t *testing.T) {
	session := newFakeSession()
	exec := sandboxExecutor(t, session)

	args := `{"files":[{"path":"a.txt","data":"A"},{"path":"b.txt","data":"B"}]}`
	res := exec.Execute(context.Background(), "write_files", json.RawMessage(args))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res.Content != "2 file(s) created successfully" {
		t.Errorf("Content = %q", res.Content)
	}
	if session.files["a.txt"] != "A" || session.files["b.txt"] != "B" {
		t.Errorf("files = %v", session.files)
	}
}

func TestWriteFilesToolEmpty(t *testing.T) {
	exec := sandboxExecutor(t, newFakeSession())

	res := exec.Execute(context.Background(), "write_files", json.RawMessage(`{"files":[]}`))
	if !res.IsError {
		t.Fatal("expected error result for empty files list")
	}
}

func TestRunCommandsTool(t *testing.T) {
	session := newFakeSession()
	session.result = sandbox.CommandResult{Stdout: "a.txt\nb.txt\n", ExitCode: 0}
	exec := sandboxExecutor(t, session)

	res := exec.Execute(context.Background(), "run_commands", json.RawMessage(`{"command":"ls"}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res.Content != "a.txt\nb.txt\n" {
		t.Errorf("Content = %q", res.Content)
	}
	if len(session.commands) != 1 || session.commands[0] != "ls" {
		t.Errorf("commands = %v", session.commands)
	}
}

func TestRunCommandsToolNonZeroExit(t *testing.T) {
	session := newFakeSession()
	session.result = sandbox.CommandResult{Stdout: "", Stderr: "boom", ExitCode: 1}
	exec := sandboxExecutor(t, session)

	// A failing command is still a successful tool call; stdout is the payload.
	res := exec.Execute(context.Background(), "run_commands", json.RawMessage(`{"command":"false"}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if res.Content != "" {
		t.Errorf("Content = %q, want empty stdout", res.Content)
	}
}

func TestRunCommandsToolSessionError(t *testing.T) {
	session := newFakeSession()
	session.runErr = sandbox.ErrSessionExpired
	exec := sandboxExecutor(t, session)

	res := exec.Execute(context.Background(), "run_commands", json.RawMessage(`{"command":"ls"}`))
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !errors.Is(res.Err, sandbox.ErrSessionExpired) {
		t.Errorf("Err = %v, want ErrSessionExpired", res.Err)
	}
}
