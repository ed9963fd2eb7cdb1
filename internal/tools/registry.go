// Package tools is the dispatch shell that exposes Page operations to an
// external agent as named tools with JSON arguments.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubjectToolInvoked is the NATS subject every finished invocation is reported on.
const SubjectToolInvoked = "swarm.pagekeeper.tool.invoked"

var ErrUnknownTool = errors.New("unknown tool")

// EventPublisher is satisfied by *hermes.Client.
type EventPublisher interface {
	Publish(subject string, data any) error
}

// ToolInvokedEvent is published after each invocation, successful or not.
type ToolInvokedEvent struct {
	InvocationID string    `json:"invocation_id"`
	Tool         string    `json:"tool"`
	OK           bool      `json:"ok"`
	Error        string    `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Param describes one tool argument.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Tool is a catalogue entry.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`

	handler func(ctx context.Context, args json.RawMessage) (any, error)
}

// Result is the outcome of a successful invocation.
type Result struct {
	InvocationID string `json:"invocation_id"`
	Tool         string `json:"tool"`
	Output       any    `json:"output"`
	DurationMS   int64  `json:"duration_ms"`
}

type Registry struct {
	tools     map[string]*Tool
	validator *inputValidator
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Registry)

// WithPublisher reports invocations to p.
func WithPublisher(p EventPublisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

// WithClock overrides the clock handed to time-windowed tools.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		tools:     make(map[string]*Tool),
		validator: newInputValidator(),
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time {
	return r.now()
}

// Register adds a tool whose JSON arguments decode into In. Input fields are
// validated with their `validate` tags before fn runs.
func Register[In any](r *Registry, name, description string, fn func(ctx context.Context, in In) (any, error)) {
	r.tools[name] = &Tool{
		Name:        name,
		Description: description,
		Params:      paramsOf[In](),
		handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in In
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if err := r.validator.check(in); err != nil {
				return nil, err
			}
			return fn(ctx, in)
		},
	}
}

// List returns the catalogue sorted by name.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs the named tool with raw JSON arguments.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (*Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	id := uuid.New().String()
	start := time.Now()
	out, err := t.handler(ctx, args)
	elapsed := time.Since(start).Milliseconds()

	r.report(ToolInvokedEvent{
		InvocationID: id,
		Tool:         name,
		OK:           err == nil,
		Error:        errString(err),
		DurationMS:   elapsed,
		Timestamp:    time.Now().UTC(),
	})

	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "invocation_id", id, "error", err)
		return nil, err
	}
	r.logger.Info("tool invoked", "tool", name, "invocation_id", id, "duration_ms", elapsed)
	return &Result{InvocationID: id, Tool: name, Output: out, DurationMS: elapsed}, nil
}

func (r *Registry) report(evt ToolInvokedEvent) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(SubjectToolInvoked, evt); err != nil {
		r.logger.Warn("failed to publish tool event", "tool", evt.Tool, "error", err)
	}
}

func decodeArgs(args json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ValidationError{Message: fmt.Sprintf("invalid JSON arguments: %v", err)}
	}
	if dec.More() {
		return &ValidationError{Message: "unexpected trailing data after arguments"}
	}
	return nil
}

func paramsOf[In any]() []Param {
	typ := reflect.TypeOf((*In)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return []Param{}
	}
	params := make([]Param, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		params = append(params, Param{
			Name:     jsonName(f),
			Type:     f.Type.Kind().String(),
			Required: hasRule(f.Tag.Get("validate"), "required"),
		})
	}
	return params
}

func hasRule(tag, rule string) bool {
	for _, part := range strings.Split(tag, ",") {
		if part == rule {
			return true
		}
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
