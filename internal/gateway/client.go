// Package gateway owns the outbound HTTP call to the remote completion
// endpoint: payload construction, credentials, response parsing, failure
// classification, inbound secret redaction, and accounting reports.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bkyoung/llmwrap/internal/accounting"
	"github.com/bkyoung/llmwrap/internal/logging"
	"github.com/bkyoung/llmwrap/internal/secrets"
	"github.com/bkyoung/llmwrap/internal/tokens"
)

const (
	// DefaultBaseURL is the OpenRouter-compatible endpoint used when no
	// base URL is configured.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// defaultTimeout bounds the single synchronous call. A timeout
	// surfaces as a network error; the request loop never hangs.
	defaultTimeout = 30 * time.Second

	defaultRetryAfterSeconds = 60

	callerName  = "gateway.Complete"
	projectName = "llmwrap"
)

// Config carries the per-instance settings of a gateway client. A
// temporary client created for a model override copies everything except
// Model from its parent.
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	SystemPrompt  string
	SkipRedaction bool
}

// Deps are the collaborators injected into a client. The logger is wrapped
// with the scanner's sanitize hook so the credential never reaches the log
// sink, without any process-global logger state.
type Deps struct {
	Scanner    *secrets.Scanner
	Accounting *accounting.Manager
	Logger     *logging.Logger
	Pricing    Pricing
	Metrics    Metrics
}

// Client performs completion calls against one fixed model. It makes a
// single attempt per call; retry policy, if any, belongs to the caller.
type Client struct {
	cfg     Config
	client  *http.Client
	scanner *secrets.Scanner
	acct    *accounting.Manager
	logger  *logging.Logger
	pricing Pricing
	metrics Metrics
}

// NewClient creates a gateway client for cfg.Model.
func NewClient(cfg Config, deps Deps) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: defaultTimeout},
		scanner: deps.Scanner,
		acct:    deps.Accounting,
		logger:  deps.Logger.WithSanitizer(deps.Scanner.Sanitize).With("component", "gateway"),
		pricing: deps.Pricing,
		metrics: deps.Metrics,
	}
}

// Model returns the model this client is bound to.
func (c *Client) Model() string {
	return c.cfg.Model
}

// ForModel returns a one-shot client bound to a different model. It
// inherits the credential, base URL, system prompt, and toggles, and
// shares the transport, scanner, accounting sink, and metrics. The caller
// owns the returned client for exactly one call and then discards it.
func (c *Client) ForModel(model string) *Client {
	clone := *c
	clone.cfg.Model = model
	clone.logger = c.logger.With("override_model", model)
	return &clone
}

// Complete sends prompt to the remote completion endpoint and returns the
// parsed result. maxTokens caps the response length when positive.
// Failures are always a *Error with a classified Kind.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (*CompletionResult, error) {
	systemTokens := tokens.Count(c.cfg.SystemPrompt)
	userTokens := tokens.Count(prompt)
	c.logger.Debug("token counts",
		"system", systemTokens,
		"user", userTokens,
		"total", systemTokens+userTokens,
	)

	c.metrics.RecordRequest(c.cfg.Model)

	c.acct.LogPrompt(ctx, accounting.PromptEntry{
		Caller:     callerName,
		Username:   currentUsername(),
		Model:      c.cfg.Model,
		PromptText: prompt,
	})

	start := time.Now()
	content, headers, body, err := c.send(ctx, prompt, maxTokens)
	duration := time.Since(start)
	c.metrics.RecordDuration(c.cfg.Model, duration)

	if err != nil {
		var gwErr *Error
		if !errors.As(err, &gwErr) {
			gwErr = newNetworkError(err.Error())
			err = gwErr
		}
		c.metrics.RecordError(c.cfg.Model, gwErr.Kind)
		c.logger.Error("completion call failed",
			"model", c.cfg.Model,
			"kind", gwErr.Kind.String(),
			"status", gwErr.StatusCode,
			"err", gwErr.Message,
		)
		return nil, err
	}

	responseTokens := tokens.Count(content)
	usage := c.extractUsage(headers, body, responseTokens)

	c.logger.Info("completion received",
		"model", c.cfg.Model,
		"duration", duration,
		"tokens_in", usage.PromptTokens,
		"tokens_out", usage.CompletionTokens,
		"cost", usage.Cost,
	)

	c.acct.LogResponse(ctx, accounting.ResponseEntry{
		Caller:             callerName,
		Username:           currentUsername(),
		Model:              c.cfg.Model,
		ResponseText:       content,
		RemoteCompletionID: body.ID,
	})
	c.acct.TrackUsage(ctx, accounting.UsageRecord{
		Model:            c.cfg.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CachedTokens:     usage.CachedTokens,
		ReasoningTokens:  usage.ReasoningTokens,
		Cost:             usage.Cost,
		Caller:           callerName,
		Project:          projectName,
		Username:         currentUsername(),
	})

	c.metrics.RecordTokens(c.cfg.Model, usage.PromptTokens, usage.CompletionTokens)
	c.metrics.RecordCost(c.cfg.Model, usage.Cost)

	return &CompletionResult{
		Text:         content,
		InputTokens:  systemTokens + userTokens,
		OutputTokens: responseTokens,
		Usage:        usage,
	}, nil
}

// send performs the single HTTP attempt and returns the redacted content,
// response headers, and parsed body. Every failure is a *Error.
func (c *Client) send(ctx context.Context, prompt string, maxTokens int) (string, http.Header, ChatCompletionResponse, error) {
	reqBody := ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, ChatCompletionResponse{}, newMalformedResponseError("Unexpected API response format: " + err.Error())
	}

	url := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", nil, ChatCompletionResponse{}, newNetworkError(err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("HTTP-Referer", "https://github.com/bkyoung/llmwrap")
	req.Header.Set("X-Title", "llmwrap MCP server")
	req.Header.Set("X-API-Version", "1")
	req.Header.Set("X-Response-Content", "usage")

	c.logger.Debug("sending completion request", "url", url, "model", c.cfg.Model)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, ChatCompletionResponse{}, newNetworkError(err.Error())
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, ChatCompletionResponse{}, newNetworkError(err.Error())
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", nil, ChatCompletionResponse{}, newRateLimitError(headerInt(resp.Header, "Retry-After", defaultRetryAfterSeconds))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, ChatCompletionResponse{}, newHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body ChatCompletionResponse
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return "", nil, ChatCompletionResponse{}, newMalformedResponseError("Unexpected API response format: " + err.Error())
	}

	if len(body.Choices) == 0 {
		return "", nil, ChatCompletionResponse{}, newMalformedResponseError("Invalid API response format: Missing choices array")
	}
	first := body.Choices[0]
	if first.Message == nil || first.Message.Content == "" {
		return "", nil, ChatCompletionResponse{}, newMalformedResponseError("Invalid API response format: Missing message content")
	}

	content := first.Message.Content
	if !c.cfg.SkipRedaction {
		content = c.scanner.Redact(content)
	}

	return content, resp.Header, body, nil
}

// extractUsage assembles usage metadata, preferring the X-* accounting
// headers the original endpoint emits, then the JSON usage block, then
// the local pricing table for cost.
func (c *Client) extractUsage(headers http.Header, body ChatCompletionResponse, responseTokens int) UsageMetadata {
	usage := UsageMetadata{
		TotalTokens:      headerInt(headers, "X-Total-Tokens", body.Usage.TotalTokens),
		PromptTokens:     headerInt(headers, "X-Prompt-Tokens", body.Usage.PromptTokens),
		CompletionTokens: headerInt(headers, "X-Completion-Tokens", body.Usage.CompletionTokens),
		CachedTokens:     headerInt(headers, "X-Cached-Tokens", 0),
		ReasoningTokens:  headerInt(headers, "X-Reasoning-Tokens", 0),
	}

	if usage.CompletionTokens == 0 {
		usage.CompletionTokens = responseTokens
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	usage.Cost = headerFloat(headers, "X-Total-Cost", 0)
	if usage.Cost == 0 {
		usage.Cost = c.pricing.GetCost(c.cfg.Model, usage.PromptTokens, usage.CompletionTokens)
	}

	return usage
}

func headerInt(h http.Header, key string, fallback int) int {
	raw := h.Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func headerFloat(h http.Header, key string, fallback float64) float64 {
	raw := h.Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func currentUsername() string {
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown_user"
}
