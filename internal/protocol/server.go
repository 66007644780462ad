package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bkyoung/llmwrap/internal/logging"
)

// ToolCallHandler resolves a validated tools/call request into a response.
// The request pipeline implements this.
type ToolCallHandler interface {
	HandleToolCall(ctx context.Context, params CallParams, id interface{}) Response
}

// Server runs the single-threaded request loop: read one line, resolve one
// invocation (including the blocking outbound call), write one line.
type Server struct {
	in      io.Reader
	out     io.Writer
	info    ServerInfo
	tools   map[string]Tool
	handler ToolCallHandler
	logger  *logging.Logger
}

// NewServer creates a protocol server reading requests from in and writing
// responses to out.
func NewServer(in io.Reader, out io.Writer, info ServerInfo, tools map[string]Tool, handler ToolCallHandler, logger *logging.Logger) *Server {
	return &Server{
		in:      in,
		out:     out,
		info:    info,
		tools:   tools,
		handler: handler,
		logger:  logger,
	}
}

func (s *Server) capabilities() Capabilities {
	return Capabilities{Tools: s.tools}
}

// Run emits the server-ready notification, then processes requests until
// EOF or context cancellation. Every per-request error is answered on the
// wire and the loop continues; if the loop infrastructure itself panics, a
// best-effort final error line is written before the panic resumes.
func (s *Server) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fatal error in request loop", "panic", fmt.Sprint(r))
			s.write(NewError(nil, CodeInternalError, "Fatal server error", fmt.Sprint(r)))
			panic(r)
		}
	}()

	s.writeNotification("mcp/serverReady", map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"serverInfo":      s.info,
		"capabilities":    s.capabilities(),
	})
	s.logger.Debug("server ready, entering request loop")

	// Unbounded line reads: a request line is as long as the caller makes
	// it, and an oversized one must fail that request alone, not the loop.
	reader := bufio.NewReader(s.in)

	for {
		if ctx.Err() != nil {
			s.logger.Info("context canceled, terminating request loop")
			return nil
		}

		line, readErr := reader.ReadString('\n')
		if trimmed := strings.TrimRight(line, "\r\n"); trimmed != "" {
			var req Request
			if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
				s.logger.Error("parse error: invalid JSON received")
				s.write(NewError(nil, CodeParseError, "Parse error", "Invalid JSON"))
			} else {
				s.write(s.handle(ctx, req))
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				s.logger.Info("EOF received, terminating request loop")
				return nil
			}
			return fmt.Errorf("read request stream: %w", readErr)
		}
	}
}

// handle dispatches one request. A panic while handling is scoped to the
// request: the caller still receives an internal error response.
func (s *Server) handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("unexpected error handling request",
				"method", req.Method,
				"panic", fmt.Sprint(r),
			)
			resp = NewError(req.ID, CodeInternalError, "Internal error",
				"Internal server error. Check server logs for details.")
		}
	}()

	s.logger.Debug("handling request", "method", req.Method, "id", fmt.Sprint(req.ID))

	switch req.Method {
	case "initialize":
		return NewResult(req.ID, map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"serverInfo":      s.info,
			"capabilities":    s.capabilities(),
		})

	case "tools/list":
		return NewResult(req.ID, map[string]interface{}{"tools": s.tools})

	case "tools/call":
		var params CallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, CodeInvalidParams, "Invalid params", "Malformed tools/call parameters")
		}
		return s.handler.HandleToolCall(ctx, params, req.ID)

	case "resources/list":
		return NewResult(req.ID, map[string]interface{}{"resources": struct{}{}})

	case "resources/templates/list":
		return NewResult(req.ID, map[string]interface{}{"templates": struct{}{}})

	default:
		s.logger.Warn("method not found", "method", req.Method)
		return NewError(req.ID, CodeMethodNotFound, "Method not found",
			fmt.Sprintf("Method '%s' not found", req.Method))
	}
}

func (s *Server) write(resp Response) {
	s.writeJSON(resp)
}

func (s *Server) writeNotification(method string, params interface{}) {
	s.writeJSON(Notification{JSONRPC: "2.0", ID: nil, Method: method, Params: params})
}

// writeJSON serializes one message and a trailing newline. Write failures
// are logged; there is nothing else to do with a broken output stream.
func (s *Server) writeJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal response", "err", err)
		return
	}
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error("failed to write response", "err", err)
	}
}
