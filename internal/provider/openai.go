package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iishyfishyy/tweak/internal/config"
)

const (
	openRouterReferer = "https://github.com/iishyfishyy/tweak"
	openRouterTitle   = "tweak"
)

func init() {
	Register(config.FamilyOpenAI, Registration{New: NewOpenAI, RequiresAuth: true})
}

// OpenAI talks to OpenAI-compatible chat completion endpoints
// (Hyperbolic, OpenRouter, OpenAI itself).
type OpenAI struct {
	base
}

// NewOpenAI creates a client for an OpenAI-compatible provider.
func NewOpenAI(p *config.Provider, gen config.Generation) (Client, error) {
	b, err := newBase(p, gen)
	if err != nil {
		return nil, err
	}
	return &OpenAI{base: b}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// Complete sends one chat completion request.
func (o *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := o.checkModel(req.Model); err != nil {
		return nil, err
	}

	body := chatRequest{
		Model:       req.Model,
		Messages:    messages(req),
		MaxTokens:   o.gen.MaxTokens,
		Temperature: o.gen.Temperature,
		TopP:        o.gen.TopP,
	}

	var out chatResponse
	err := o.exchange(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", o.headers(), body, &out)
	if errors.Is(err, errEmptyBody) {
		return o.emptyResponse(req.Model), nil
	}
	if err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, out.Error.asRejected(o.cfg.ID, http.StatusOK)
	}
	if len(out.Choices) == 0 {
		return o.emptyResponse(req.Model), nil
	}
	return o.response(req.Model, out.Choices[0].Message.Content), nil
}

// ListModels returns the configured models.
func (o *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	return o.configuredModels(), nil
}

func (o *OpenAI) headers() map[string]string {
	h := map[string]string{"Authorization": "Bearer " + o.cfg.Token}
	if o.cfg.ID == "openrouter" || strings.Contains(o.cfg.BaseURL, "openrouter.ai") {
		h["HTTP-Referer"] = openRouterReferer
		h["X-Title"] = openRouterTitle
	}
	return h
}

func messages(req Request) []chatMessage {
	var msgs []chatMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.userMessage()})
}
