package domain

import (
	json "github.com/goccy/go-json"
)

type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// ToolResult is the tagged outcome of a tool invocation. An error status
// is a recoverable signal surfaced back to the caller (typically the
// oracle), not a fault that aborts the engine.
type ToolResult struct {
	Status       ToolStatus      `json:"status"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

func ToolSuccess(data json.RawMessage) *ToolResult {
	return &ToolResult{Status: ToolStatusSuccess, Data: data}
}

func ToolFailure(msg string) *ToolResult {
	return &ToolResult{Status: ToolStatusError, ErrorMessage: msg}
}

// OracleDecision is the oracle's answer for one turn: either a terminal
// answer or a request to invoke a named tool with arguments.
type OracleDecision struct {
	Answer   json.RawMessage `json:"answer,omitempty"`
	ToolCall *ToolCall       `json:"tool_call,omitempty"`
}

type ToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}
