package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// httpClientTimeout is the default timeout for HTTP requests
const httpClientTimeout = 60 * time.Second

// defaultHTTPClient is shared by every provider
var defaultHTTPClient = &http.Client{
	Timeout: httpClientTimeout,
}

// genericAPIFailure is reported when an error body carries no message.
const genericAPIFailure = "API request failed"

// OpenAICompatProvider talks to an OpenAI-style /chat/completions endpoint.
// Used directly for OpenAI and wrapped for Perplexity.
type OpenAICompatProvider struct {
	baseURL string
	apiKey  string
	model   string
	name    string
	client  *http.Client
}

func NewOpenAICompatProvider(baseURL, apiKey, model, name string) *OpenAICompatProvider {
	return &OpenAICompatProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		name:    name,
		client:  defaultHTTPClient,
	}
}

// WithHTTPClient replaces the shared HTTP client.
func (p *OpenAICompatProvider) WithHTTPClient(c *http.Client) *OpenAICompatProvider {
	if c != nil {
		p.client = c
	}
	return p
}

func (p *OpenAICompatProvider) Name() string {
	return fmt.Sprintf("%s (%s)", p.name, p.model)
}

func (p *OpenAICompatProvider) Model() string {
	return p.model
}

type oaiChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type oaiChatResponse struct {
	Choices []oaiChoice `json:"choices"`
}

type oaiChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type oaiErrorBody struct {
	Error *oaiAPIError `json:"error"`
}

type oaiAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (p *OpenAICompatProvider) makeRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	return p.client.Do(httpReq)
}

// Complete sends the conversation and returns the first choice's text.
func (p *OpenAICompatProvider) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(oaiChatRequest{
		Model:       p.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	resp, err := p.makeRequest(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", p.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Provider: p.name, StatusCode: resp.StatusCode, Message: apiErrorMessage(data)}
	}

	var chatResp oaiChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse %s response: %w", p.name, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}
	return chatResp.Choices[0].Message.Content, nil
}

// apiErrorMessage extracts error.message from an error body.
func apiErrorMessage(body []byte) string {
	var eb oaiErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == nil || eb.Error.Message == "" {
		return genericAPIFailure
	}
	return eb.Error.Message
}
