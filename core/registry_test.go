package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTool returns a canned payload or error.
type fakeTool struct {
	name    string
	payload any
	err     error
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool" }
func (f *fakeTool) InputSchema() []byte { return []byte(`{"type": "object"}`) }

func (f *fakeTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	return f.payload, f.err
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if !r.Register(&fakeTool{name: "alpha"}, RiskReadOnly) {
		t.Error("Read-only tool should register")
	}
	if !r.Register(&fakeTool{name: "beta"}, RiskTrading) {
		t.Error("Trading tool should register on a writable registry")
	}

	if r.Len() != 2 {
		t.Errorf("Expected 2 tools, got %d", r.Len())
	}

	if _, ok := r.Get("alpha"); !ok {
		t.Error("alpha should be registered")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("missing should not be registered")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Names should preserve registration order: %v", names)
	}
}

func TestRegistryReadOnlyGating(t *testing.T) {
	r := NewRegistry(WithReadOnly(true))

	if !r.Register(&fakeTool{name: "reader"}, RiskReadOnly) {
		t.Error("Read-only tool should register on a read-only registry")
	}
	if r.Register(&fakeTool{name: "trader"}, RiskTrading) {
		t.Error("Trading tool should be suppressed on a read-only registry")
	}

	if _, ok := r.Get("trader"); ok {
		t.Error("Suppressed tool must not be retrievable")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 tool, got %d", r.Len())
	}
	if !r.ReadOnly() {
		t.Error("ReadOnly should report true")
	}
}

func TestInvokeSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: "ok", payload: map[string]string{"hello": "world"}}, RiskReadOnly)

	result := r.Invoke(context.Background(), "ok", nil)
	if result.IsError {
		t.Fatal("Expected success envelope")
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("Malformed envelope: %+v", result)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("Envelope text should be JSON: %v", err)
	}
	if payload["hello"] != "world" {
		t.Errorf("Wrong payload: %v", payload)
	}
}

func TestInvokeError(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: "bad", err: errors.New("upstream exploded")}, RiskReadOnly)

	result := r.Invoke(context.Background(), "bad", nil)
	if !result.IsError {
		t.Fatal("Expected error envelope")
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("Error envelope text should be JSON: %v", err)
	}
	if !strings.Contains(payload["error"], "upstream exploded") {
		t.Errorf("Error message should pass through: %v", payload)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	r := NewRegistry()

	result := r.Invoke(context.Background(), "nope", nil)
	if !result.IsError {
		t.Error("Unknown tool should produce an error envelope")
	}
	if !strings.Contains(result.Content[0].Text, "unknown tool") {
		t.Errorf("Wrong error text: %s", result.Content[0].Text)
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	calls   []string
	errored []bool
}

func (o *recordingObserver) ObserveInvocation(tool string, isError bool, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, tool)
	o.errored = append(o.errored, isError)
}

func TestInvokeObserver(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRegistry(WithObserver(obs))
	r.Register(&fakeTool{name: "ok", payload: "fine"}, RiskReadOnly)
	r.Register(&fakeTool{name: "bad", err: errors.New("boom")}, RiskReadOnly)

	r.Invoke(context.Background(), "ok", nil)
	r.Invoke(context.Background(), "bad", nil)

	if len(obs.calls) != 2 {
		t.Fatalf("Expected 2 observations, got %d", len(obs.calls))
	}
	if obs.errored[0] || !obs.errored[1] {
		t.Errorf("Wrong error flags: %v", obs.errored)
	}
}

func TestMissingParamError(t *testing.T) {
	err := &MissingParamError{Param: "token_id"}
	if err.Error() != "token_id is required" {
		t.Errorf("Wrong message: %s", err.Error())
	}
}

func TestInvalidParamError(t *testing.T) {
	err := &InvalidParamError{Param: "price", Reason: "price must be between 0 and 1 (exclusive)"}
	if err.Error() != "price must be between 0 and 1 (exclusive)" {
		t.Errorf("Wrong message: %s", err.Error())
	}
}
