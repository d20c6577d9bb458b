package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SupabaseProvider invokes a chat edge function that proxies the model call.
type SupabaseProvider struct {
	projectURL string
	function   string
	apiKey     string
	client     *http.Client
}

func NewSupabaseProvider(projectURL, function, apiKey string) *SupabaseProvider {
	if function == "" {
		function = "chat"
	}
	return &SupabaseProvider{
		projectURL: strings.TrimSuffix(projectURL, "/"),
		function:   function,
		apiKey:     apiKey,
		client:     defaultHTTPClient,
	}
}

// WithHTTPClient replaces the shared HTTP client.
func (p *SupabaseProvider) WithHTTPClient(c *http.Client) *SupabaseProvider {
	if c != nil {
		p.client = c
	}
	return p
}

func (p *SupabaseProvider) Name() string {
	return fmt.Sprintf("Supabase (%s)", p.function)
}

type functionRequest struct {
	Messages []Message `json:"messages"`
}

// functionResponse accepts the reply under any of the keys edge functions
// commonly use.
type functionResponse struct {
	Response string          `json:"response"`
	Content  string          `json:"content"`
	Message  string          `json:"message"`
	Error    json.RawMessage `json:"error"`
}

func (r functionResponse) text() string {
	for _, s := range []string{r.Response, r.Content, r.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (p *SupabaseProvider) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", ErrNotConfigured
	}
	if p.projectURL == "" {
		return "", errors.New("supabase project URL not configured (set supabase.url or SUPABASE_URL)")
	}

	body, err := json.Marshal(functionRequest{Messages: req.Messages})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	endpoint := p.projectURL + "/functions/v1/" + p.function
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("apikey", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var fr functionResponse
	parseErr := json.Unmarshal(data, &fr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if parseErr == nil {
			if m := errorText(fr.Error); m != "" {
				msg = m
			}
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &FunctionError{Function: p.function, StatusCode: resp.StatusCode, Message: msg}
	}
	if parseErr != nil {
		return "", fmt.Errorf("failed to parse function response: %w", parseErr)
	}
	if m := errorText(fr.Error); m != "" {
		return "", &FunctionError{Function: p.function, Message: m}
	}
	text := fr.text()
	if text == "" {
		return "", &FunctionError{Function: p.function, Message: "empty response"}
	}
	return text, nil
}

// errorText reads an error field that may be a string or {"message": ...}.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
