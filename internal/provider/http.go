package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/iishyfishyy/tweak/internal/config"
)

const maxResponseBytes = 8 << 20

// base carries what every family needs: the provider entry, sampling
// parameters and an HTTP client bounded by the configured timeout.
type base struct {
	cfg    *config.Provider
	gen    config.Generation
	client *http.Client
}

func newBase(p *config.Provider, gen config.Generation) (base, error) {
	if p.BaseURL == "" {
		return base{}, fmt.Errorf("provider %s: base_url is required", p.ID)
	}
	return base{
		cfg:    p,
		gen:    gen,
		client: &http.Client{Timeout: gen.Timeout},
	}, nil
}

func (b *base) ID() string { return b.cfg.ID }

// checkModel enforces the model list before any network call.
func (b *base) checkModel(model string) error {
	if model == "" || (len(b.cfg.Models) > 0 && !slices.Contains(b.cfg.Models, model)) {
		return &InvalidModelError{Provider: b.cfg.ID, Model: model, Available: slices.Clone(b.cfg.Models)}
	}
	return nil
}

// configuredModels returns a copy of the configured list.
func (b *base) configuredModels() []string {
	return slices.Clone(b.cfg.Models)
}

// exchange performs one HTTP request and decodes a JSON answer into out.
// Header values are never logged.
func (b *base) exchange(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	log := zerolog.Ctx(ctx)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", b.cfg.ID, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", b.cfg.ID, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range b.cfg.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	log.Debug().Str("provider", b.cfg.ID).Str("method", method).Str("url", url).Msg("provider request")

	resp, err := b.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", b.cfg.ID, ctxErr)
		}
		return &TransportError{Provider: b.cfg.ID, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", b.cfg.ID, ctxErr)
		}
		return &TransportError{Provider: b.cfg.ID, Err: fmt.Errorf("reading response: %w", err)}
	}

	log.Debug().
		Str("provider", b.cfg.ID).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("provider response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RejectedError{Provider: b.cfg.ID, Status: resp.StatusCode, Body: excerpt(raw)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &RejectedError{
			Provider: b.cfg.ID,
			Status:   resp.StatusCode,
			Body:     excerpt(raw),
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// errEmptyBody marks a 2xx answer with no body; callers turn it into a
// Response with OK=false.
var errEmptyBody = errors.New("empty response body")

func (b *base) emptyResponse(model string) *Response {
	return &Response{Provider: b.cfg.ID, Model: model, OK: false}
}

func (b *base) response(model, text string) *Response {
	return &Response{
		Text:     text,
		Provider: b.cfg.ID,
		Model:    model,
		OK:       text != "",
	}
}

// apiError is the error envelope used by OpenAI-compatible and Anthropic APIs.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *apiError) asRejected(provider string, status int) *RejectedError {
	msg := e.Message
	if e.Type != "" {
		msg = e.Type + ": " + msg
	}
	return &RejectedError{Provider: provider, Status: status, Err: errors.New(msg)}
}
