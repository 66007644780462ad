package gateway

// ChatCompletionRequest is the payload sent to {baseURL}/chat/completions.
type ChatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Message is a chat message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the success body of a completion call.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a single completion choice.
type Choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message"`
	FinishReason string   `json:"finish_reason"`
}

// Usage is the token usage block some providers include in the body.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageMetadata is the provider-reported accounting data for one call.
// All fields are optional and provider-dependent; zero values mean the
// provider did not report them.
type UsageMetadata struct {
	TotalTokens      int
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int
	ReasoningTokens  int
	Cost             float64
}

// CompletionResult is the outcome of one successful gateway call.
type CompletionResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Usage        UsageMetadata
}
