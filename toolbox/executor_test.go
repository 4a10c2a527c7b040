package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExecuteSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ToolSpec{
		Name: "echo",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("%v", args["text"]), nil
		},
	})
	exec := NewExecutor(reg)

	res := exec.Execute(context.Background(), "echo", json.RawMessage(`{"text":"hello"}`))
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if res.Content != "hello" {
		t.Errorf("Content = %q, want %q", res.Content, "hello")
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	exec := NewExecutor(NewRegistry())

	res := exec.Execute(context.Background(), "teleport", nil)
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(res.Content, `unknown tool "teleport"`) {
		t.Errorf("Content = %q, want unknown tool message", res.Content)
	}
	if !errors.Is(res.Err, ErrUnknownTool) {
		t.Errorf("Err = %v, want ErrUnknownTool", res.Err)
	}
}

func TestExecuteMalformedArguments(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ToolSpec{Name: "echo", Handler: noopHandler})
	exec := NewExecutor(reg)

	res := exec.Execute(context.Background(), "echo", json.RawMessage(`{not json`))
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(res.Content, "invalid arguments for echo") {
		t.Errorf("Content = %q, want invalid arguments message", res.Content)
	}
}

func TestExecuteEmptyArguments(t *testing.T) {
	reg := NewRegistry()
	var got map[string]any
	reg.Register(ToolSpec{
		Name: "probe",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			got = args
			return "ok", nil
		},
	})
	exec := NewExecutor(reg)

	res := exec.Execute(context.Background(), "probe", nil)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if got == nil {
		t.Error("handler received nil args, want empty map")
	}
}

func TestExecuteHandlerError(t *testing.T) {
	reg := NewRegistry()
	cause := errors.New("file not found: missing.txt")
	reg.Register(ToolSpec{
		Name: "read_file",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", cause
		},
	})
	exec := NewExecutor(reg)

	res := exec.Execute(context.Background(), "read_file", json.RawMessage(`{"path":"missing.txt"}`))
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(res.Content, "missing.txt") {
		t.Errorf("Content = %q, want underlying error text", res.Content)
	}
	if !errors.Is(res.Err, cause) {
		t.Errorf("Err = %v, want wrapped cause", res.Err)
	}
}

func TestExecuteTruncatesOutput(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ToolSpec{
		Name: "big",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return strings.Repeat("x", 500), nil
		},
	})
	exec := NewExecutor(reg)
	exec.SetOutputLimits(map[string]int{"big": 100})

	res := exec.Execute(context.Background(), "big", nil)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if !strings.Contains(res.Content, "Output truncated") {
		t.Error("expected truncation notice in output")
	}
	if len(res.Content) >= 500 {
		t.Errorf("output not truncated, len = %d", len(res.Content))
	}
}

func TestTruncateOutputShortUnchanged(t *testing.T) {
	s := "short output"
	if got := TruncateOutput(s, 100); got != s {
		t.Errorf("TruncateOutput changed short input: %q", got)
	}
	if got := TruncateOutput(s, 0); got != s {
		t.Errorf("TruncateOutput with zero limit changed input: %q", got)
	}
}

func TestTruncateOutputKeepsHeadAndTail(t *testing.T) {
	s := strings.Repeat("a", 100) + strings.Repeat("z", 100)
	got := TruncateOutput(s, 40)
	if !strings.HasPrefix(got, "aaaa") {
		t.Error("expected head preserved")
	}
	if !strings.HasSuffix(got, "zzzz") {
		t.Error("expected tail preserved")
	}
	if !strings.Contains(got, "160 characters removed") {
		t.Errorf("expected removal count in notice, got %q", got)
	}
}

func TestDecodeArgsWeakTyping(t *testing.T) {
	var out struct {
		Path  string `mapstructure:"path"`
		Count int    `mapstructure:"count"`
	}
	// JSON numbers decode as float64; weak typing converts to int.
	err := DecodeArgs(map[string]any{"path": "a.txt", "count": float64(3)}, &out)
	if err != nil {
		t.Fatalf("DecodeArgs failed: %v", err)
	}
	if out.Path != "a.txt" || out.Count != 3 {
		t.Errorf("decoded = %+v", out)
	}
}
