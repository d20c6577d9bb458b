package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTranscribeURL is OpenAI's transcription endpoint.
const DefaultTranscribeURL = "https://api.openai.com/v1/audio/transcriptions"

const defaultTranscribeModel = "whisper-1"

// TranscribeOptions selects the speech-to-text endpoint. A local
// whisper.cpp server needs only Endpoint; OpenAI needs APIKey.
type TranscribeOptions struct {
	APIKey   string
	Language string // e.g. "en"
	Endpoint string // full URL; DefaultTranscribeURL when empty
	Model    string // sent only with an APIKey; whisper-1 when empty
}

func (o TranscribeOptions) endpoint() string {
	if o.Endpoint != "" {
		return o.Endpoint
	}
	return DefaultTranscribeURL
}

// TranscribeFile uploads the audio file at path. See Transcribe.
func TranscribeFile(ctx context.Context, path string, opts TranscribeOptions) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()
	return Transcribe(ctx, f, filepath.Base(path), opts)
}

// Transcribe uploads audio read from r as a file called name and returns the
// transcript with surrounding whitespace removed. Silence usually comes back
// as an empty string rather than an error.
func Transcribe(ctx context.Context, r io.Reader, name string, opts TranscribeOptions) (string, error) {
	body, contentType, err := transcriptionForm(r, name, opts)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.endpoint(), body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+opts.APIKey)
	}

	resp, err := defaultHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Provider: "Whisper", StatusCode: resp.StatusCode, Message: apiErrorMessage(data)}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

// transcriptionForm builds the multipart body. whisper.cpp rejects unknown
// model names, so model is only sent to authenticated endpoints.
func transcriptionForm(r io.Reader, name string, opts TranscribeOptions) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}

	fields := [][2]string{{"response_format", "json"}}
	if opts.APIKey != "" {
		model := opts.Model
		if model == "" {
			model = defaultTranscribeModel
		}
		fields = append(fields, [2]string{"model", model})
	}
	if opts.Language != "" {
		fields = append(fields, [2]string{"language", opts.Language})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
