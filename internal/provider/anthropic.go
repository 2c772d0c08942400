package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iishyfishyy/tweak/internal/config"
)

const anthropicVersion = "2023-06-01"

func init() {
	Register(config.FamilyAnthropic, Registration{New: NewAnthropic, RequiresAuth: true})
}

// Anthropic talks to the Anthropic messages API.
type Anthropic struct {
	base
}

// NewAnthropic creates a client for the Anthropic messages API.
func NewAnthropic(p *config.Provider, gen config.Generation) (Client, error) {
	b, err := newBase(p, gen)
	if err != nil {
		return nil, err
	}
	return &Anthropic{base: b}, nil
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *apiError `json:"error,omitempty"`
}

// Complete sends one messages request.
func (a *Anthropic) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := a.checkModel(req.Model); err != nil {
		return nil, err
	}

	body := messagesRequest{
		Model:       req.Model,
		System:      req.SystemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: req.userMessage()}},
		MaxTokens:   a.gen.MaxTokens,
		Temperature: a.gen.Temperature,
		TopP:        a.gen.TopP,
	}
	headers := map[string]string{
		"x-api-key":         a.cfg.Token,
		"anthropic-version": anthropicVersion,
	}

	var out messagesResponse
	err := a.exchange(ctx, http.MethodPost, a.cfg.BaseURL+"/messages", headers, body, &out)
	if errors.Is(err, errEmptyBody) {
		return a.emptyResponse(req.Model), nil
	}
	if err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, out.Error.asRejected(a.cfg.ID, http.StatusOK)
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return a.response(req.Model, sb.String()), nil
}

// ListModels returns the configured models.
func (a *Anthropic) ListModels(ctx context.Context) ([]string, error) {
	return a.configuredModels(), nil
}
