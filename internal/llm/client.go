// Package llm is the client for the opaque transcription capability: an
// OpenAI-compatible chat completions endpoint that accepts inline
// base64 audio (Gemini's OpenAI compatibility layer by default).
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

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultRequestTimeout = 120 * time.Second

	// Generous output budget for a 10 minute window; low temperature for
	// consistent transcription.
	maxTokens   = 4000
	temperature = 0.1
)

// Credentials hold backend access settings, bound from LLMT_* env vars.
type Credentials struct {
	APIKey  string `envconfig:"API_KEY"`
	BaseURL string `envconfig:"BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/openai"`
}

// CredentialsFromEnv reads LLMT_API_KEY and LLMT_BASE_URL.
func CredentialsFromEnv() (Credentials, error) {
	var c Credentials
	if err := envconfig.Process("llmt", &c); err != nil {
		return Credentials{}, fmt.Errorf("read backend credentials: %w", err)
	}
	return c, nil
}

// BackendError wraps a failed transcription call. Status is the HTTP
// status code, or 0 for transport-level failures (including timeouts).
type BackendError struct {
	Status int
	Msg    string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transcription backend: HTTP %d: %s", e.Status, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("transcription backend: %v", e.Err)
	}
	return fmt.Sprintf("transcription backend: %s", e.Msg)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed: transport
// errors and timeouts, rate limits, and server-side failures.
func (e *BackendError) Retryable() bool {
	switch {
	case e.Status == 0:
		return true
	case e.Status == http.StatusRequestTimeout || e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	default:
		return false
	}
}

// Client calls the chat completions endpoint.
type Client struct {
	httpc  *http.Client
	creds  Credentials
	model  string
	logger *logrus.Logger
}

// NewClient returns a Client for the given model. A zero timeout falls
// back to DefaultRequestTimeout.
func NewClient(creds Credentials, model string, timeout time.Duration, logger *logrus.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		httpc:  &http.Client{Timeout: timeout},
		creds:  creds,
		model:  model,
		logger: logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

type filePart struct {
	FileData string `json:"file_data"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe sends one window's WAV audio plus the context preamble and
// returns the model's raw text output. hint is optional free text about
// the recording folded into the prompt.
func (c *Client) Transcribe(ctx context.Context, audioWAV []byte, contextText, hint string) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    buildMessages(audioWAV, contextText, hint),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	c.logger.WithFields(logrus.Fields{
		"model":      c.model,
		"audioBytes": len(audioWAV),
		"hasContext": contextText != "",
	}).Debug("sending transcription request")

	resp, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &BackendError{Msg: "empty completion"}
	}
	return resp.Choices[0].Message.Content, nil
}

// TestConnection makes a minimal completion request to verify the
// endpoint, credentials and model are usable.
func (c *Client) TestConnection(ctx context.Context) error {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: "Please respond with 'OK' to confirm you're working."},
		},
		MaxTokens:   10,
		Temperature: 0,
	}
	resp, err := c.complete(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return &BackendError{Msg: "empty completion"}
	}
	return nil
}

func (c *Client) complete(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimSuffix(c.creds.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.creds.APIKey)

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, &BackendError{Status: httpResp.StatusCode, Msg: strings.TrimSpace(string(msg))}
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, &BackendError{Msg: "malformed response", Err: err}
	}
	if resp.Error != nil {
		return nil, &BackendError{Msg: resp.Error.Message}
	}
	return &resp, nil
}
