// Package protocol implements the line-delimited JSON-RPC surface of the
// MCP server: wire types, the fixed method set, and the stdio read loop.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// JSON-RPC error codes used on the wire.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32000
)

// Request is one inbound JSON-RPC request line.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is one outbound JSON-RPC response line. ID intentionally lacks
// omitempty: a parse error response carries an explicit null id.
type Response struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      interface{}  `json:"id"`
	Result  interface{}  `json:"result,omitempty"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// Notification is a server-initiated message, like mcp/serverReady. The
// null id matches the wire format callers of this server expect.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// ErrorObject is the error member of a failed response.
type ErrorObject struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ServerInfo identifies this server in initialize and serverReady payloads.
type ServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Tool describes one callable tool and its JSON input schema.
type Tool struct {
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Capabilities is the capability set advertised at startup. The empty
// structs serialize as {}, which is what capability stubs return.
type Capabilities struct {
	Tools     map[string]Tool `json:"tools"`
	Resources struct{}        `json:"resources"`
	Prompts   struct{}        `json:"prompts"`
	Sampling  struct{}        `json:"sampling"`
}

// CallParams are the params of a tools/call request.
type CallParams struct {
	Name      string        `json:"name"`
	Arguments CallArguments `json:"arguments"`
}

// CallArguments are the tool arguments of a tools/call request. Model is
// a pointer so an absent override is distinguishable from an empty one.
type CallArguments struct {
	Prompt string  `json:"prompt"`
	Model  *string `json:"model,omitempty"`
}

// ContentBlock is one element of a tool result content array.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the result member of a successful tools/call response.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// NewTextResult wraps text in the protocol's content-array shape.
func NewTextResult(id interface{}, text string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Result: ToolResult{
			Content: []ContentBlock{{Type: "text", Text: text}},
			IsError: false,
		},
	}
}

// NewResult builds a success response with an arbitrary result payload.
func NewResult(id, result interface{}) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError builds an error response scoped to one request.
func NewError(id interface{}, code int, message string, data interface{}) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: message, Data: data},
	}
}

// DefaultTools returns the built-in tool set: a single llm_call tool whose
// prompt description quotes the configured token budget.
func DefaultTools(maxPromptTokens int) map[string]Tool {
	return map[string]Tool{
		"llm_call": {
			Description: "Make a generic call to the configured LLM with a given prompt.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"prompt": map[string]interface{}{
						"type":        "string",
						"description": fmt.Sprintf("The natural language prompt for the LLM. Maximum length is %d tokens.", maxPromptTokens),
					},
					"model": map[string]interface{}{
						"type":        "string",
						"description": "Optional model name to use for this request. If not specified, uses the default model.",
					},
				},
				"required": []string{"prompt"},
			},
		},
	}
}
