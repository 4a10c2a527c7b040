package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Result is the outcome of one tool execution: either a success payload or
// an error description. Failure is a value, never a panic or propagated
// error, so it flows through the same path as success and always reaches the
// conversation log.
type Result struct {
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
	DurationMs int64  `json:"duration_ms"`

	// Err carries the underlying failure for callers that need to
	// distinguish causes (e.g. an expired sandbox lease). Not serialized.
	Err error `json:"-"`
}

// SuccessResult creates a success Result.
func SuccessResult(content string) Result {
	return Result{Content: content}
}

// ErrorResult creates an error-tagged Result.
func ErrorResult(err error) Result {
	return Result{Content: "Error: " + err.Error(), IsError: true, Err: err}
}

// Executor invokes registry entries. Tool-level failures (unknown tool,
// malformed arguments, sandbox errors) are converted into error-tagged
// Results; Execute never returns an error itself.
type Executor struct {
	registry *Registry
	limits   map[string]int // per-tool output character limits
}

// NewExecutor creates an Executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
		limits:   DefaultOutputLimits,
	}
}

// SetOutputLimits overrides the per-tool output character limits.
func (e *Executor) SetOutputLimits(limits map[string]int) {
	e.limits = limits
}

// Execute resolves and runs a tool by name against raw JSON arguments.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) Result {
	start := time.Now()

	spec, err := e.registry.Resolve(name)
	if err != nil {
		return timed(Result{
			Content: fmt.Sprintf("Error: unknown tool %q", name),
			IsError: true,
			Err:     err,
		}, start)
	}

	argMap, err := decodeArguments(args)
	if err != nil {
		return timed(Result{
			Content: fmt.Sprintf("Error: invalid arguments for %s: %v", name, err),
			IsError: true,
			Err:     err,
		}, start)
	}

	output, err := spec.Handler(ctx, argMap)
	if err != nil {
		return timed(Result{
			Content: fmt.Sprintf("Error: %s: %v", name, err),
			IsError: true,
			Err:     err,
		}, start)
	}

	if limit, ok := e.limits[name]; ok && limit > 0 {
		output = TruncateOutput(output, limit)
	}
	return timed(SuccessResult(output), start)
}

func timed(r Result, start time.Time) Result {
	r.DurationMs = time.Since(start).Milliseconds()
	return r
}

// decodeArguments structurally decodes a raw tool-call payload into a map.
// Empty payloads decode to an empty map.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// DecodeArgs decodes an argument map into a typed per-tool struct.
func DecodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(args)
}
