// Package pipeline validates inbound tool invocations end to end and
// dispatches them to the gateway: tool existence, prompt presence,
// outbound secret check, token budget, model-override validation, and
// response envelope construction.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bkyoung/llmwrap/internal/gateway"
	"github.com/bkyoung/llmwrap/internal/logging"
	"github.com/bkyoung/llmwrap/internal/modelspec"
	"github.com/bkyoung/llmwrap/internal/protocol"
	"github.com/bkyoung/llmwrap/internal/secrets"
	"github.com/bkyoung/llmwrap/internal/tokens"
)

// Gateway is the outbound completion dependency of the pipeline.
type Gateway interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (*gateway.CompletionResult, error)
	Model() string
}

// GatewayFactory builds a one-shot gateway for a validated model override.
// The returned gateway is used for exactly one call and then discarded.
type GatewayFactory func(model string) Gateway

// Config carries the immutable per-server settings the pipeline enforces.
type Config struct {
	DefaultModel       string
	MaxPromptTokens    int
	MaxResponseTokens  int
	SkipOutboundChecks bool

	// AllowedModels restricts model overrides when non-nil. The default
	// model is always allowed.
	AllowedModels map[string]bool
}

// Pipeline is stateless across requests apart from its shared default
// gateway and configuration.
type Pipeline struct {
	cfg      Config
	tools    map[string]protocol.Tool
	gw       Gateway
	forModel GatewayFactory
	scanner  *secrets.Scanner
	logger   *logging.Logger
}

// New creates a request pipeline over the given default gateway.
func New(cfg Config, tools map[string]protocol.Tool, gw Gateway, forModel GatewayFactory, scanner *secrets.Scanner, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		tools:    tools,
		gw:       gw,
		forModel: forModel,
		scanner:  scanner,
		logger:   logger,
	}
}

// HandleToolCall validates one tools/call invocation and dispatches it.
// Checks run in a fixed order and the first failure short-circuits with
// its specific error code; no two checks run if an earlier one fails.
func (p *Pipeline) HandleToolCall(ctx context.Context, params protocol.CallParams, id interface{}) protocol.Response {
	logger := p.logger.With("request_id", correlationID(id))

	if _, ok := p.tools[params.Name]; !ok {
		logger.Warn("tool not found", "tool", params.Name)
		return protocol.NewError(id, protocol.CodeMethodNotFound, "Method not found",
			fmt.Sprintf("Tool '%s' not found", params.Name))
	}

	prompt := params.Arguments.Prompt
	if prompt == "" {
		logger.Warn("missing prompt argument", "tool", params.Name)
		return protocol.NewError(id, protocol.CodeInvalidParams, "Invalid params",
			"Missing required 'prompt' argument")
	}

	if !p.cfg.SkipOutboundChecks && p.scanner.Contains(prompt) {
		logger.Warn("API key leak detected in prompt")
		return protocol.NewError(id, protocol.CodeInvalidParams, "Security violation",
			"Prompt contains sensitive API key - request rejected")
	}

	promptTokens := tokens.Count(prompt)
	logger.Debug("prompt token count", "count", promptTokens, "max", p.cfg.MaxPromptTokens)
	if promptTokens > p.cfg.MaxPromptTokens {
		return protocol.NewError(id, protocol.CodeInvalidParams, "Invalid params",
			fmt.Sprintf("Prompt exceeds maximum length of %d tokens", p.cfg.MaxPromptTokens))
	}

	var override string
	if params.Arguments.Model != nil {
		validated, err := modelspec.Validate(*params.Arguments.Model)
		if err != nil {
			var verr *modelspec.ValidationError
			data := "Invalid model name"
			if errors.As(err, &verr) {
				data = verr.Reason
			}
			logger.Warn("invalid model specification", "model", *params.Arguments.Model)
			return protocol.NewError(id, protocol.CodeInvalidParams, "Invalid model specification", data)
		}
		if p.cfg.AllowedModels != nil && validated != p.cfg.DefaultModel && !p.cfg.AllowedModels[validated] {
			logger.Warn("model not in allow list", "model", validated)
			return protocol.NewError(id, protocol.CodeInvalidParams, "Invalid model specification",
				fmt.Sprintf("Model '%s' is not in the allowed models list", validated))
		}
		override = validated
	}

	gw := p.gw
	if override != "" && override != p.cfg.DefaultModel {
		// One-shot gateway owned by this call alone, discarded after it.
		gw = p.forModel(override)
		logger.Debug("using temporary gateway for model override", "model", override)
	}

	result, err := gw.Complete(ctx, prompt, p.cfg.MaxResponseTokens)
	if err != nil {
		logger.Error("tool execution failed", "tool", params.Name, "err", err)
		return protocol.NewError(id, protocol.CodeInternalError, classifyGatewayError(err),
			"Internal server error. Check server logs for details.")
	}

	return protocol.NewTextResult(id, result.Text)
}

// classifyGatewayError maps a gateway failure to the user-facing message.
// The gateway already folds transport detail into classified messages; any
// other error is reported generically so raw detail stays in local logs.
func classifyGatewayError(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return "Internal error: LLM call failed"
}

// correlationID derives a loggable id for the invocation: the request id
// when the caller supplied one, a generated uuid otherwise.
func correlationID(id interface{}) string {
	if id == nil {
		return uuid.NewString()
	}
	return fmt.Sprint(id)
}
