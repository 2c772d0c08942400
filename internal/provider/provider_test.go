package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iishyfishyy/tweak/internal/config"
)

var testGen = config.Generation{
	MaxTokens:   2048,
	Temperature: 0.7,
	TopP:        0.9,
	Timeout:     5 * time.Second,
}

// recorder captures the single request a test server receives.
type recorder struct {
	count   atomic.Int32
	header  http.Header
	path    string
	payload map[string]any
}

func newServer(t *testing.T, rec *recorder, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.count.Add(1)
		rec.header = r.Header.Clone()
		rec.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(id string, family config.Family, url string) *config.Provider {
	return &config.Provider{
		ID:      id,
		Family:  family,
		BaseURL: url,
		Models:  []string{"model-a", "model-b"},
		Token:   "secret-token",
	}
}

func testRequest() Request {
	return Request{
		SystemPrompt: "be terse",
		UserPrompt:   "add a comment",
		FileContent:  "package main\n",
		Model:        "model-a",
	}
}

func TestOpenAI_Complete(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`)

	c, err := New(testProvider("hyperbolic", config.FamilyOpenAI, srv.URL), testGen)
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, &Response{Text: "hello", Provider: "hyperbolic", Model: "model-a", OK: true}, resp)
	assert.Equal(t, int32(1), rec.count.Load())
	assert.Equal(t, "/chat/completions", rec.path)
	assert.Equal(t, "Bearer secret-token", rec.header.Get("Authorization"))
	assert.Empty(t, rec.header.Get("HTTP-Referer"))

	assert.Equal(t, "model-a", rec.payload["model"])
	assert.Equal(t, float64(2048), rec.payload["max_tokens"])
	assert.Equal(t, 0.7, rec.payload["temperature"])
	assert.Equal(t, 0.9, rec.payload["top_p"])
	assert.Equal(t, false, rec.payload["stream"])

	msgs, ok := rec.payload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "add a comment\n\npackage main\n", msgs[1].(map[string]any)["content"])
}

func TestOpenAI_OpenRouterHeaders(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)

	c, err := New(testProvider("openrouter", config.FamilyOpenAI, srv.URL), testGen)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", rec.header.Get("Authorization"))
	assert.NotEmpty(t, rec.header.Get("HTTP-Referer"))
	assert.Equal(t, "tweak", rec.header.Get("X-Title"))
}

func TestAnthropic_Complete(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusOK,
		`{"content":[{"type":"text","text":"hel"},{"type":"text","text":"lo"}]}`)

	c, err := New(testProvider("anthropic", config.FamilyAnthropic, srv.URL), testGen)
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.True(t, resp.OK)

	assert.Equal(t, "/messages", rec.path)
	assert.Equal(t, "secret-token", rec.header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", rec.header.Get("anthropic-version"))
	assert.Empty(t, rec.header.Get("Authorization"))
	assert.Equal(t, "be terse", rec.payload["system"])

	msgs := rec.payload["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestOllama_Complete(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusOK, `{"message":{"role":"assistant","content":"local"},"done":true}`)

	p := testProvider("ollama", config.FamilyOllama, srv.URL)
	p.Token = ""
	c, err := New(p, testGen)
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "local", resp.Text)
	assert.Equal(t, "/api/chat", rec.path)
	assert.Empty(t, rec.header.Get("Authorization"))
	assert.Equal(t, false, rec.payload["stream"])
}

func TestOllama_ListModelsFallsBackToTags(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusOK, `{"models":[{"name":"llama3:8b"},{"name":"qwen2.5-coder"}]}`)

	p := testProvider("ollama", config.FamilyOllama, srv.URL)
	p.Models = nil
	c, err := New(p, testGen)
	require.NoError(t, err)

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:8b", "qwen2.5-coder"}, models)
	assert.Equal(t, "/api/tags", rec.path)
}

func TestComplete_InvalidModelMakesNoRequest(t *testing.T) {
	for _, family := range []config.Family{config.FamilyOpenAI, config.FamilyAnthropic, config.FamilyOllama} {
		t.Run(string(family), func(t *testing.T) {
			rec := &recorder{}
			srv := newServer(t, rec, http.StatusOK, `{}`)

			c, err := New(testProvider("p", family, srv.URL), testGen)
			require.NoError(t, err)

			req := testRequest()
			req.Model = "not-a-model"
			_, err = c.Complete(context.Background(), req)

			require.ErrorIs(t, err, ErrInvalidModel)
			var ime *InvalidModelError
			require.ErrorAs(t, err, &ime)
			assert.Equal(t, "not-a-model", ime.Model)
			assert.Equal(t, []string{"model-a", "model-b"}, ime.Available)
			assert.Zero(t, rec.count.Load())
		})
	}
}

func TestComplete_Rejected(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, http.StatusInternalServerError, `{"error":{"message":"upstream exploded"}}`)

	c, err := New(testProvider("hyperbolic", config.FamilyOpenAI, srv.URL), testGen)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrRejected)

	var re *RejectedError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusInternalServerError, re.Status)
	assert.Contains(t, re.Body, "upstream exploded")
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), rec.count.Load())
}

func TestComplete_RejectedBodyIsTruncated(t *testing.T) {
	long := make([]byte, 4096)
	for i := range long {
		long[i] = 'x'
	}
	srv := newServer(t, &recorder{}, http.StatusBadRequest, string(long))

	c, err := New(testProvider("hyperbolic", config.FamilyOpenAI, srv.URL), testGen)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	var re *RejectedError
	require.ErrorAs(t, err, &re)
	assert.LessOrEqual(t, len(re.Body), maxExcerpt+len("…"))
}

func TestComplete_ErrorObjectIn2xxIsRejected(t *testing.T) {
	srv := newServer(t, &recorder{}, http.StatusOK, `{"error":{"type":"overloaded_error","message":"try later"}}`)

	c, err := New(testProvider("anthropic", config.FamilyAnthropic, srv.URL), testGen)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "try later")
}

func TestComplete_UndecodableBodyIsRejected(t *testing.T) {
	srv := newServer(t, &recorder{}, http.StatusOK, `<html>gateway</html>`)

	c, err := New(testProvider("hyperbolic", config.FamilyOpenAI, srv.URL), testGen)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	var re *RejectedError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusOK, re.Status)
	assert.Contains(t, re.Body, "gateway")
}

func TestComplete_NoTextIsNotOK(t *testing.T) {
	srv := newServer(t, &recorder{}, http.StatusOK, `{"choices":[]}`)

	c, err := New(testProvider("hyperbolic", config.FamilyOpenAI, srv.URL), testGen)
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Empty(t, resp.Text)
}

func TestComplete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(testProvider("hyperbolic", config.FamilyOpenAI, url), testGen)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsRetryable(err))
}

func TestComplete_CanceledIsNotTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c, err := New(testProvider("hyperbolic", config.FamilyOpenAI, srv.URL), testGen)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = c.Complete(ctx, testRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRetryable(err))
}

func TestNew_MissingToken(t *testing.T) {
	p := testProvider("hyperbolic", config.FamilyOpenAI, "http://127.0.0.1:1")
	p.Token = ""

	_, err := New(p, testGen)
	require.ErrorIs(t, err, ErrNoProviderConfigured)
}

func TestNew_UnknownFamily(t *testing.T) {
	_, err := New(testProvider("x", config.Family("smoke-signal"), "http://127.0.0.1:1"), testGen)
	require.ErrorIs(t, err, ErrUnknownFamily)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(config.FamilyOpenAI, Registration{New: NewOpenAI})
	})
	assert.Equal(t, []string{"anthropic", "ollama", "openai"}, Families())
}

func TestErrors_Taxonomy(t *testing.T) {
	te := &TransportError{Provider: "p", Err: io.ErrUnexpectedEOF}
	assert.True(t, errors.Is(te, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(te, ErrRejected))

	re := &RejectedError{Provider: "p", Status: 401, Body: "nope"}
	assert.Contains(t, re.Error(), "401")
	assert.False(t, errors.Is(re, ErrTransport))
}
