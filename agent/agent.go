// Package agent implements the turn orchestrator: one user message drives at
// most one model call with tools, one round of tool execution, and one
// follow-up model call without tools that produces the final answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/martinemde/sandchat/convo"
	"github.com/martinemde/sandchat/llm"
	"github.com/martinemde/sandchat/sandbox"
	"github.com/martinemde/sandchat/toolbox"
)

// Phase is the orchestrator's position within a turn.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseAwaitingModel    Phase = "awaiting_model"
	PhaseDispatching      Phase = "dispatching"
	PhaseAwaitingFollowUp Phase = "awaiting_follow_up"
)

// CompletionClient is the model surface the orchestrator calls.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config holds orchestrator settings.
type Config struct {
	SystemPrompt string
	Provider     string // empty lets the client infer from the model id
}

// Orchestrator owns one conversation and drives its turns. All methods are
// safe for concurrent use, but RunTurn itself is serialized: a second call
// while a turn is in flight fails immediately.
type Orchestrator struct {
	id       string
	state    *convo.State
	registry *toolbox.Registry
	executor *toolbox.Executor
	client   CompletionClient
	session  sandbox.Session
	emitter  *EventEmitter
	config   Config
	logger   *slog.Logger

	mu    sync.Mutex
	phase Phase

	// Consecutive tool rounds where every sandbox-backed call failed because
	// the session lease was gone. Two in a row means the sandbox is dead.
	sandboxFailStreak int
}

// ErrSandboxUnavailable reports that the sandbox session keeps rejecting
// calls; the host should tear down and recreate the session.
var ErrSandboxUnavailable = errors.New("sandbox session unavailable")

// New creates an Orchestrator over the given conversation state, tool
// registry, model client, and sandbox session.
func New(state *convo.State, registry *toolbox.Registry, client CompletionClient, session sandbox.Session, config Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	return &Orchestrator{
		id:       id,
		state:    state,
		registry: registry,
		executor: toolbox.NewExecutor(registry),
		client:   client,
		session:  session,
		emitter:  NewEventEmitter(id, 256),
		config:   config,
		phase:    PhaseIdle,
		logger:   logger.With("session_id", id),
	}
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string { return o.id }

// Phase returns the current turn phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Events returns the event channel for the host application.
func (o *Orchestrator) Events() <-chan TurnEvent {
	return o.emitter.Events()
}

// History returns a snapshot of the conversation log.
func (o *Orchestrator) History() []llm.Message {
	return o.state.Store().Messages()
}

// ActiveModel returns the model id used for the next turn.
func (o *Orchestrator) ActiveModel() string {
	return o.state.ActiveModel()
}

// SelectModel switches the model used from the next turn onward. Past turns
// are unaffected.
func (o *Orchestrator) SelectModel(modelID string) error {
	if err := o.state.SelectModel(modelID); err != nil {
		return err
	}
	o.emitter.Emit(EventModelSelected, map[string]any{
		"model": o.state.ActiveModel(),
	})
	return nil
}

// Close releases the event channel. The sandbox session is owned by the
// caller and is not closed here.
func (o *Orchestrator) Close() {
	o.emitter.Close()
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// beginTurn transitions Idle -> AwaitingModel, rejecting overlapping turns.
func (o *Orchestrator) beginTurn() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseIdle {
		return fmt.Errorf("turn already in progress (phase %s)", o.phase)
	}
	o.phase = PhaseAwaitingModel
	return nil
}

// RunTurn processes one user message through the full turn loop and returns
// the assistant's final answer text.
//
// The user message is appended before the first model call, so a failed
// model call still leaves the message in the log and the turn can be
// retried by the operator. Tool failures never fail the turn; they are
// recorded as error-tagged results and handed back to the model.
func (o *Orchestrator) RunTurn(ctx context.Context, text string) (string, error) {
	if err := o.beginTurn(); err != nil {
		return "", err
	}
	defer o.setPhase(PhaseIdle)

	o.emitter.Emit(EventTurnStart, map[string]any{"content": text})

	if err := o.state.Store().Append(llm.UserMessage(text)); err != nil {
		return "", err
	}

	model := o.state.ActiveModel()
	response, err := o.client.Complete(ctx, llm.Request{
		Model:    model,
		Provider: o.config.Provider,
		Messages: o.requestMessages(),
		Tools:    o.registry.Definitions(),
	})
	if err != nil {
		o.logger.Error("model call failed", "model", model, "error", err)
		o.emitter.Emit(EventError, map[string]any{"error": err.Error()})
		return "", fmt.Errorf("model call: %w", err)
	}

	assistant := response.Message
	if err := o.state.Store().Append(assistant); err != nil {
		return "", err
	}
	o.emitter.Emit(EventAssistantText, map[string]any{
		"text":       assistant.Content,
		"tool_calls": len(assistant.ToolCalls),
	})

	// Direct answer: no tool round, the turn is done.
	if len(assistant.ToolCalls) == 0 {
		o.emitter.Emit(EventTurnEnd, nil)
		return assistant.Content, nil
	}

	o.setPhase(PhaseDispatching)
	results := o.executeToolCalls(ctx, assistant.ToolCalls)
	o.trackSandboxHealth(results)
	for i, tc := range assistant.ToolCalls {
		msg := llm.ToolResultMessage(tc.ID, results[i].Content, results[i].IsError)
		if err := o.state.Store().Append(msg); err != nil {
			return "", err
		}
	}

	o.setPhase(PhaseAwaitingFollowUp)
	followUp, err := o.client.Complete(ctx, llm.Request{
		Model:    model,
		Provider: o.config.Provider,
		Messages: o.requestMessages(),
		// No tool definitions: this call must produce the final answer.
	})
	if err != nil {
		o.logger.Error("follow-up call failed", "model", model, "error", err)
		o.emitter.Emit(EventError, map[string]any{"error": err.Error()})
		return "", fmt.Errorf("follow-up call: %w", err)
	}

	// Tool calls on the follow-up are ignored; only one tool round runs per
	// turn. The text content is the answer.
	final := llm.AssistantMessage(followUp.Message.Content)
	if err := o.state.Store().Append(final); err != nil {
		return "", err
	}
	o.emitter.Emit(EventAssistantText, map[string]any{"text": final.Content})
	o.emitter.Emit(EventTurnEnd, nil)
	return final.Content, nil
}

// requestMessages builds the model request: the system prompt, if configured,
// followed by the full conversation log.
func (o *Orchestrator) requestMessages() []llm.Message {
	history := o.state.Store().Messages()
	if o.config.SystemPrompt == "" {
		return history
	}
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(o.config.SystemPrompt))
	return append(messages, history...)
}

// executeToolCalls runs all calls from one assistant message concurrently and
// returns their results indexed by request position, so the conversation log
// always lists results in the order the model asked for them.
func (o *Orchestrator) executeToolCalls(ctx context.Context, toolCalls []llm.ToolCall) []toolbox.Result {
	results := make([]toolbox.Result, len(toolCalls))
	var wg sync.WaitGroup
	for i, tc := range toolCalls {
		wg.Add(1)
		go func(idx int, call llm.ToolCall) {
			defer wg.Done()
			o.emitter.Emit(EventToolCallStart, map[string]any{
				"tool_name": call.Name,
				"call_id":   call.ID,
			})
			res := o.executor.Execute(ctx, call.Name, call.Arguments)
			if res.IsError {
				o.logger.Warn("tool call failed",
					"tool_name", call.Name, "call_id", call.ID, "error", res.Content)
			}
			o.emitter.Emit(EventToolCallEnd, map[string]any{
				"call_id":     call.ID,
				"output":      res.Content,
				"is_error":    res.IsError,
				"duration_ms": res.DurationMs,
			})
			results[idx] = res
		}(i, tc)
	}
	wg.Wait()
	return results
}

// trackSandboxHealth watches for rounds where every call died on a lost
// session lease. Individual failures are recoverable tool errors; a streak
// means the session itself is gone, which is surfaced once as a fatal event.
func (o *Orchestrator) trackSandboxHealth(results []toolbox.Result) {
	allExpired := len(results) > 0
	for _, r := range results {
		if !errors.Is(r.Err, sandbox.ErrSessionExpired) && !errors.Is(r.Err, sandbox.ErrSessionClosed) {
			allExpired = false
			break
		}
	}

	o.mu.Lock()
	if allExpired {
		o.sandboxFailStreak++
	} else {
		o.sandboxFailStreak = 0
	}
	streak := o.sandboxFailStreak
	o.mu.Unlock()

	if streak >= 2 {
		o.logger.Error("sandbox session unavailable", "failed_rounds", streak)
		o.emitter.Emit(EventError, map[string]any{"error": ErrSandboxUnavailable.Error()})
	}
}

// RunCommand executes an operator-entered shell command directly in the
// sandbox, bypassing the model. The command and its output never enter the
// conversation log.
func (o *Orchestrator) RunCommand(ctx context.Context, command string) (*sandbox.CommandResult, error) {
	result, err := o.session.RunCommand(ctx, command)
	if err != nil {
		o.emitter.Emit(EventError, map[string]any{"error": err.Error()})
		return nil, err
	}
	o.emitter.Emit(EventCommandRun, map[string]any{
		"command":   command,
		"exit_code": result.ExitCode,
	})
	return result, nil
}
