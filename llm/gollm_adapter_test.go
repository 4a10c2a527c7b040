package llm

import (
	"encoding/json"
	"strings"
	"testing"
)

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }
func errForMsg(msg string) error     { return &simpleError{msg: msg} }

func TestGollmAdapterTranslateError(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}

	tests := []struct {
		errMsg string
		check  func(error) bool
		want   string
	}{
		{"401 Unauthorized", func(e error) bool { _, ok := e.(*AuthenticationError); return ok }, "AuthenticationError"},
		{"invalid api key", func(e error) bool { _, ok := e.(*AuthenticationError); return ok }, "AuthenticationError"},
		{"403 Forbidden", func(e error) bool { _, ok := e.(*AccessDeniedError); return ok }, "AccessDeniedError"},
		{"404 not found", func(e error) bool { _, ok := e.(*NotFoundError); return ok }, "NotFoundError"},
		{"429 rate limit exceeded", func(e error) bool { _, ok := e.(*RateLimitError); return ok }, "RateLimitError"},
		{"context length exceeded", func(e error) bool { _, ok := e.(*ContextLengthError); return ok }, "ContextLengthError"},
		{"500 internal server error", func(e error) bool { _, ok := e.(*ServerError); return ok }, "ServerError"},
		{"timeout waiting for response", func(e error) bool { _, ok := e.(*RequestTimeoutError); return ok }, "RequestTimeoutError"},
		{"connection refused", func(e error) bool { _, ok := e.(*NetworkError); return ok }, "NetworkError"},
		{"something unknown", func(e error) bool { _, ok := e.(*ProviderError); return ok }, "ProviderError"},
	}

	for _, tt := range tests {
		err := adapter.translateError(errForMsg(tt.errMsg))
		if err == nil {
			t.Errorf("expected non-nil error for %q", tt.errMsg)
			continue
		}
		if !tt.check(err) {
			t.Errorf("for %q: expected %s, got %T", tt.errMsg, tt.want, err)
		}
	}
}

func TestGollmAdapterTranslateErrorNil(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}
	if err := adapter.translateError(nil); err != nil {
		t.Errorf("translateError(nil) = %v", err)
	}
}

func TestParseToolCalls(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}

	text := `I'll list the files. [{"name": "run_commands", "arguments": {"command": "ls"}}]`
	calls := adapter.parseToolCalls(text)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].Name != "run_commands" {
		t.Errorf("Name = %q", calls[0].Name)
	}
	if calls[0].ID == "" {
		t.Error("expected synthesized call id")
	}

	var args map[string]any
	if err := json.Unmarshal(calls[0].Arguments, &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["command"] != "ls" {
		t.Errorf("command = %v", args["command"])
	}
}

func TestParseToolCallsNone(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}
	if calls := adapter.parseToolCalls("Just a plain answer."); calls != nil {
		t.Errorf("got %v, want nil", calls)
	}
}

func TestParseToolCallsKeepsProvidedID(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}
	text := `[{"id": "call_abc", "name": "read_file", "arguments": {"path": "a.txt"}}]`
	calls := adapter.parseToolCalls(text)
	if len(calls) != 1 || calls[0].ID != "call_abc" {
		t.Errorf("calls = %+v, want id call_abc preserved", calls)
	}
}

func TestStripToolCallJSON(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}
	text := `Let me check. [{"name": "run_commands", "arguments": {"command": "ls"}}]`
	calls := adapter.parseToolCalls(text)
	stripped := adapter.stripToolCallJSON(text, calls)
	if stripped != "Let me check." {
		t.Errorf("stripped = %q", stripped)
	}
	if got := adapter.stripToolCallJSON("plain", nil); got != "plain" {
		t.Errorf("no-calls strip = %q", got)
	}
}

func TestTranslateRequestFlattensTranscript(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}
	req := Request{
		Messages: []Message{
			SystemMessage("be brief"),
			UserMessage("list files"),
			{Role: RoleAssistant, ToolCalls: []ToolCall{
				{ID: "call_1", Name: "run_commands", Arguments: json.RawMessage(`{"command":"ls"}`)},
			}},
			ToolResultMessage("call_1", "a.txt", false),
			ToolResultMessage("call_1", "denied", true),
		},
	}
	prompt := adapter.translateRequest(req)
	for _, want := range []string{"list files", "run_commands", "[Tool Result call_1]: a.txt", "[Tool Error call_1]: denied"} {
		if !strings.Contains(prompt.Input, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt.Input)
		}
	}
	if !strings.Contains(prompt.SystemPrompt, "be brief") {
		t.Errorf("system prompt = %q", prompt.SystemPrompt)
	}
}

func TestEstimateTokens(t *testing.T) {
	req := Request{Messages: []Message{UserMessage("Hello world, this is a test message.")}}
	if tokens := estimateTokens(req); tokens <= 0 {
		t.Errorf("estimate = %d, want positive", tokens)
	}
	if tokens := estimateTokens(Request{}); tokens != 10 {
		t.Errorf("empty estimate = %d, want 10", tokens)
	}
}
