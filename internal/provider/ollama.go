package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/iishyfishyy/tweak/internal/config"
)

func init() {
	Register(config.FamilyOllama, Registration{New: NewOllama})
}

// Ollama talks to a local Ollama server. It does not authenticate.
type Ollama struct {
	base
}

// NewOllama creates a client for an Ollama server.
func NewOllama(p *config.Provider, gen config.Generation) (Client, error) {
	b, err := newBase(p, gen)
	if err != nil {
		return nil, err
	}
	return &Ollama{base: b}, nil
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Complete sends one non-streaming chat request.
func (o *Ollama) Complete(ctx context.Context, req Request) (*Response, error) {
	// With no configured list, any non-empty model is passed through and
	// the server decides.
	if err := o.checkModel(req.Model); err != nil {
		return nil, err
	}

	body := ollamaChatRequest{
		Model:    req.Model,
		Messages: messages(req),
		Options: ollamaOptions{
			NumPredict:  o.gen.MaxTokens,
			Temperature: o.gen.Temperature,
			TopP:        o.gen.TopP,
		},
	}

	var out ollamaChatResponse
	err := o.exchange(ctx, http.MethodPost, o.cfg.BaseURL+"/api/chat", nil, body, &out)
	if errors.Is(err, errEmptyBody) {
		return o.emptyResponse(req.Model), nil
	}
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &RejectedError{Provider: o.cfg.ID, Status: http.StatusOK, Err: errors.New(out.Error)}
	}
	return o.response(req.Model, out.Message.Content), nil
}

// ListModels returns the configured models, or asks the server for its
// installed models when none are configured.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	if models := o.configuredModels(); len(models) > 0 {
		return models, nil
	}

	var out ollamaTagsResponse
	err := o.exchange(ctx, http.MethodGet, o.cfg.BaseURL+"/api/tags", nil, nil, &out)
	if errors.Is(err, errEmptyBody) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	models := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		models = append(models, m.Name)
	}
	return models, nil
}
