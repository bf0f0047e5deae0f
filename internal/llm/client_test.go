package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(url string) *Client {
	return NewClient(Credentials{APIKey: "test-key", BaseURL: url}, "test-model", 5*time.Second, quietLogger())
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestTranscribeSendsExpectedRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		io.WriteString(w, completionBody("[00:00:01] Alice: hello"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	out, err := c.Transcribe(context.Background(), []byte("RIFFaudio"), "[00:09:00] Bob: tail line", "weekly sync")
	require.NoError(t, err)
	require.Equal(t, "[00:00:01] Alice: hello", out)

	require.Equal(t, "/chat/completions", gotPath)
	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "test-model", gotReq.Model)
	require.Equal(t, maxTokens, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 2)
	require.Equal(t, "system", gotReq.Messages[0].Role)

	// The user message carries the context preamble, the hint, and the
	// base64 audio payload.
	user, err := json.Marshal(gotReq.Messages[1].Content)
	require.NoError(t, err)
	require.Contains(t, string(user), "Bob: tail line")
	require.Contains(t, string(user), "weekly sync")
	require.Contains(t, string(user), "data:audio/wav;base64,")
	require.Contains(t, string(user), "verbatim")
}

func TestTranscribeNoContextPrompt(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		io.WriteString(w, completionBody("[00:00:01] A: hi"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "", "")
	require.NoError(t, err)

	user, err := json.Marshal(gotReq.Messages[1].Content)
	require.NoError(t, err)
	require.Contains(t, string(user), "Start timestamps from [00:00:00]")
	require.NotContains(t, string(user), "Context from previous chunk")
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "", "")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	require.Equal(t, http.StatusServiceUnavailable, berr.Status)
	require.True(t, berr.Retryable())
}

func TestTranscribeClientErrorNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "", "")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	require.False(t, berr.Retryable())
	require.Contains(t, berr.Msg, "bad api key")
}

func TestTranscribeRateLimitRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "", "")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	require.True(t, berr.Retryable())
}

func TestTranscribeEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "", "")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	require.True(t, berr.Retryable())
}

func TestTranscribeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json at all")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "", "")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
}

func TestTranscribeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "", "")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	require.Equal(t, 0, berr.Status)
	require.True(t, berr.Retryable())
}

func TestTranscribeContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background connection
		// read; otherwise it never notices the client disconnect and the
		// request context is never cancelled, deadlocking srv.Close.
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := newTestClient(srv.URL).Transcribe(ctx, []byte("RIFF"), "", "")
	require.Error(t, err)
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		io.WriteString(w, completionBody("OK"))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv.URL).TestConnection(context.Background()))
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("LLMT_API_KEY", "abc123")
	t.Setenv("LLMT_BASE_URL", "https://example.test/v1")

	creds, err := CredentialsFromEnv()
	require.NoError(t, err)
	require.Equal(t, "abc123", creds.APIKey)
	require.Equal(t, "https://example.test/v1", creds.BaseURL)
}

func TestCredentialsDefaultBaseURL(t *testing.T) {
	t.Setenv("LLMT_API_KEY", "abc123")
	t.Setenv("LLMT_BASE_URL", "")

	creds, err := CredentialsFromEnv()
	require.NoError(t, err)
	require.True(t, strings.Contains(creds.BaseURL, "generativelanguage"))
}
