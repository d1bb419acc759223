package protocol

import (
	"encoding/json"
	"errors"

	"github.com/cgast/atwork/pkg/taskspec"
)

// JSON-RPC 2.0 message types for serve mode.

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"` // string or int; nil for notifications
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application-specific error codes.
const (
	CodeSpecInvalid  = -32003
	CodeNotFound     = -32004
	CodeRefboxFailed = -32005
	CodePlanFailed   = -32006
)

// Method constants for all supported JSON-RPC methods.
const (
	MethodTaskParse    = "task.parse"
	MethodTaskReparse  = "task.reparse"
	MethodTaskClassify = "task.classify"
	MethodTaskPlan     = "task.plan"
	MethodTaskFetch    = "task.fetch"

	MethodUserdataGet  = "userdata.get"
	MethodFixturesList = "fixtures.list"
	MethodHistory      = "history"
)

// NewResponse creates a successful response.
func NewResponse(id any, result any) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id any, code int, message string, data any) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// SpecError converts a specification parse failure into a JSON-RPC error
// carrying the structured failure as data.
func SpecError(err error) *Error {
	var pe *taskspec.ParseError
	if errors.As(err, &pe) {
		return &Error{Code: CodeSpecInvalid, Message: pe.Error(), Data: pe}
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

// Parameter types.

// TaskParams holds parameters for "task.parse", "task.plan" and
// "task.classify". An empty Type means detect it from the tag.
type TaskParams struct {
	Type string `json:"type,omitempty"`
	Spec string `json:"spec"`
}

// ReparseParams holds parameters for "task.reparse". The specification
// copy is taken from the userdata store.
type ReparseParams struct {
	Type string `json:"type,omitempty"`
}

// FetchParams holds parameters for "task.fetch".
type FetchParams struct {
	Type     string `json:"type,omitempty"`
	Simulate bool   `json:"simulate,omitempty"`
}

// UserdataGetParams holds parameters for "userdata.get". An empty Key
// lists the whole scope.
type UserdataGetParams struct {
	Scope string `json:"scope"`
	Key   string `json:"key,omitempty"`
}

// ClassifyResult is returned by "task.classify".
type ClassifyResult struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// FixtureInfo describes one built-in specification.
type FixtureInfo struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Spec string `json:"spec"`
}

// RunResult is returned by "task.fetch" and "task.reparse".
type RunResult struct {
	RunID    string `json:"run_id"`
	Outcome  string `json:"outcome"`
	SpecCopy string `json:"spec_copy,omitempty"`
	Task     any    `json:"task,omitempty"`
	TaskList any    `json:"task_list,omitempty"`
	Error    any    `json:"error,omitempty"`
}
