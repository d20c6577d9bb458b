// Package wiki fetches short encyclopedia summaries.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const DefaultBaseURL = "https://en.wikipedia.org/api/rest_v1"

// ErrNotFound is returned when the topic has no summary.
var ErrNotFound = errors.New("wiki: no summary found")

// Summary is the subset of the page summary payload nova uses.
type Summary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ExtractHTML string `json:"extract_html"`
}

// Client queries the REST summary endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// Summary returns the plain-text extract for topic.
func (c *Client) Summary(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrNotFound
	}
	endpoint := c.baseURL + "/page/summary/" + url.PathEscape(topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nova (terminal assistant)")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wiki request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("wiki API error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var s Summary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", fmt.Errorf("decode summary: %w", err)
	}
	text := strings.TrimSpace(s.Extract)
	if text == "" && s.ExtractHTML != "" {
		text, err = htmlText(s.ExtractHTML)
		if err != nil {
			return "", err
		}
	}
	if text == "" {
		return "", ErrNotFound
	}
	return text, nil
}

func htmlText(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parse extract_html: %w", err)
	}
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}
