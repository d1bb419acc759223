// Package protocol serves the task.* methods as newline-delimited JSON-RPC
// 2.0, one request per line on stdin and one reply per line on stdout.
package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// HandlerFunc answers one method call. A non-nil *Error becomes the error
// member of the reply; otherwise the returned value is the result.
type HandlerFunc func(params json.RawMessage) (any, *Error)

// Handler dispatches requests by method name. It is safe to register
// methods while requests are being served.
type Handler struct {
	mu      sync.RWMutex
	methods map[string]HandlerFunc
}

func NewHandler() *Handler {
	return &Handler{methods: make(map[string]HandlerFunc)}
}

// Register binds method to fn, replacing an earlier binding.
func (h *Handler) Register(method string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.methods[method] = fn
}

// Handle answers req. Unknown methods and a jsonrpc member other than
// "2.0" are reported with the standard error codes.
func (h *Handler) Handle(req Request) Response {
	if req.JSONRPC != "2.0" {
		return NewErrorResponse(req.ID, CodeInvalidRequest, "invalid jsonrpc version", nil)
	}

	h.mu.RLock()
	fn, ok := h.methods[req.Method]
	h.mu.RUnlock()
	if !ok {
		return NewErrorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method, nil)
	}

	result, rpcErr := fn(req.Params)
	if rpcErr != nil {
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return NewResponse(req.ID, result)
}

// HandleRaw decodes one request line and answers it. Undecodable input
// yields a parse error reply with a null id.
func (h *Handler) HandleRaw(data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return NewErrorResponse(nil, CodeParseError, "parse error: "+err.Error(), nil)
	}
	return h.Handle(req)
}

// Methods lists the registered method names in order.
func (h *Handler) Methods() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseParams decodes params into T. Absent or null params leave T zero,
// so methods with only optional fields accept a bare call.
func ParseParams[T any](params json.RawMessage) (T, *Error) {
	var p T
	if len(params) == 0 || string(params) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return p, &Error{
			Code:    CodeInvalidParams,
			Message: fmt.Sprintf("invalid params: %v", err),
		}
	}
	return p, nil
}

// maxLine bounds one request line.
const maxLine = 1024 * 1024

// Serve reads newline-delimited requests from r and writes one response
// line per request to w until r is exhausted or ctx is done. Notifications
// (requests without an id) get no response.
func (h *Handler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := h.HandleRaw([]byte(line))
		if resp.ID == nil && resp.Error == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}
