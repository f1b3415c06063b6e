package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"multibot/internal/config"
)

const defaultOpenAIModel = "whisper-1"

// OpenAIClient transcribes through the official SDK. It ignores TEXT_PATH and
// EXTRA_CONFIG.
type OpenAIClient struct {
	cfg    config.Config
	client openai.Client
}

// NewOpenAIClient builds an SDK client. API_ENDPOINT may be the full
// transcription URL; the SDK base URL is derived from it.
func NewOpenAIClient(cfg config.Config, httpClient *http.Client) (*OpenAIClient, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Token),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if base := BaseURL(cfg.APIEndpoint); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &OpenAIClient{cfg: cfg, client: openai.NewClient(opts...)}, nil
}

// BaseURL strips the "/audio/transcriptions" suffix from an endpoint.
func BaseURL(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	base := strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/audio/transcriptions")
	return base + "/"
}

// Transcribe uploads the file through the SDK once. A non-2xx reply becomes an
// *APIError, anything else a *NetworkError.
func (c *OpenAIClient) Transcribe(ctx context.Context, filePath string) (Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	model := c.cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(model),
	}
	if c.cfg.Language != "" {
		params.Language = openai.String(c.cfg.Language)
	}
	if c.cfg.Prompt != "" {
		params.Prompt = openai.String(c.cfg.Prompt)
	}

	if c.cfg.UPLOAD_DEBUG {
		slog.Debug("uploading via sdk", "file", filePath, "model", model)
	}
	res, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Result{}, &APIError{StatusCode: apiErr.StatusCode, Body: []byte(apiErr.RawJSON())}
		}
		return Result{}, &NetworkError{Endpoint: c.cfg.APIEndpoint, Err: err}
	}
	return Result{Text: strings.TrimSpace(res.Text)}, nil
}
