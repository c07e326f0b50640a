// Package core provides the tool abstraction: named operations with JSON
// parameter schemas, a uniform result envelope, and a registry that gates
// state-changing tools behind a read-only flag.
package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// Risk classes. Trading tools change exchange state and are omitted from
// read-only registries.
const (
	RiskReadOnly = "read-only"
	RiskTrading  = "trading"
)

// Tool is a single named operation.
type Tool interface {
	Name() string
	Description() string
	InputSchema() []byte
	Execute(ctx context.Context, input json.RawMessage) (any, error)
}

// Content is one entry of a result envelope.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the uniform envelope every tool invocation returns. Content
// carries pretty-printed JSON; failures set IsError and carry an error
// object instead.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// TextResult wraps a payload as a success envelope.
func TextResult(payload any) *Result {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ErrorResult(fmt.Errorf("marshal result: %w", err))
	}
	return &Result{
		Content: []Content{{Type: "text", Text: string(data)}},
	}
}

// ErrorResult wraps an error as a failure envelope.
func ErrorResult(err error) *Result {
	data, _ := json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
	return &Result{
		Content: []Content{{Type: "text", Text: string(data)}},
		IsError: true,
	}
}

// MissingParamError reports a required parameter that was absent or
// empty. Raised before any network call is made.
type MissingParamError struct {
	Param string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("%s is required", e.Param)
}

// InvalidParamError reports a parameter that was present but violated a
// domain constraint. Raised before any network call is made.
type InvalidParamError struct {
	Param  string
	Reason string
}

func (e *InvalidParamError) Error() string {
	return e.Reason
}
