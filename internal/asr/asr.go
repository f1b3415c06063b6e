// Package asr sends recorded audio to a speech-to-text service.
package asr

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"multibot/internal/config"
	"multibot/internal/jsonpath"
)

// Result is one transcription.
type Result struct {
	Text string
	// Raw is the service reply when the backend exposes it.
	Raw []byte
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) (Result, error)
}

// NetworkError is a transport failure: the request never produced a response.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx reply from the service.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, formatResponse(e.Body))
}

// New returns the transcriber selected by cfg.Backend.
func New(cfg config.Config, httpClient *http.Client) (Transcriber, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "http":
		return NewClient(cfg, httpClient)
	case "openai":
		return NewOpenAIClient(cfg, httpClient)
	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}
}

// Client uploads audio as multipart/form-data to an OpenAI-compatible endpoint
// and extracts the text with TEXT_PATH.
type Client struct {
	cfg            config.Config
	httpClient     *http.Client
	extraConfigMap map[string]interface{}
}

// NewClient creates a multipart client and parses ExtraConfig.
func NewClient(cfg config.Config, httpClient *http.Client) (*Client, error) {
	c := &Client{cfg: cfg, httpClient: httpClient}
	if cfg.ExtraConfig != "" {
		c.extraConfigMap = make(map[string]interface{})
		if err := json.Unmarshal([]byte(cfg.ExtraConfig), &c.extraConfigMap); err != nil {
			return nil, fmt.Errorf("invalid extra-config JSON: %w", err)
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second}
	}
	return c, nil
}

// Transcribe uploads the file once. There is no retry: a failure is returned
// to the caller as is.
func (c *Client) Transcribe(ctx context.Context, filePath string) (Result, error) {
	if c.cfg.APIEndpoint == "" {
		return Result{}, fmt.Errorf("API endpoint is empty")
	}
	body, contentType, err := c.buildForm(filePath)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIEndpoint, body)
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	req.Header.Set("User-Agent", "multibot/1.0")

	if c.cfg.UPLOAD_DEBUG {
		slog.Debug("uploading", "file", filePath, "endpoint", c.cfg.APIEndpoint)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &NetworkError{Endpoint: c.cfg.APIEndpoint, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &NetworkError{Endpoint: c.cfg.APIEndpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	if c.cfg.UPLOAD_DEBUG {
		slog.Debug("upload finished", "status", resp.StatusCode, "elapsed", time.Since(start), "body", formatResponse(respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Raw: respBody}, &APIError{StatusCode: resp.StatusCode, Body: respBody}
	}
	text := jsonpath.ExtractTextFromResponse(respBody, c.cfg.TEXTPath)
	return Result{Text: strings.TrimSpace(text), Raw: respBody}, nil
}

func (c *Client) buildForm(filePath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}

	fields := make(map[string]interface{})
	if c.cfg.Model != "" {
		fields["model"] = c.cfg.Model
	}
	if c.cfg.Language != "" {
		fields["language"] = c.cfg.Language
	}
	if c.cfg.Prompt != "" {
		fields["prompt"] = c.cfg.Prompt
	}
	for k, v := range c.extraConfigMap {
		fields[k] = v
	}
	for k, v := range fields {
		if err := writer.WriteField(k, formValue(v)); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func formValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool, float64, int:
		return fmt.Sprintf("%v", val)
	default:
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", val)
	}
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		s := string(b)
		if len(s) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", s[:maxText], len(b))
		}
		return s
	}

	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
