package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// TextModel is a hosted text-generation model.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiModel calls the Gemini API through the genai SDK.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errs.NewConfigError("GOOGLE_API_KEY", nil)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errs.NewConfigError("gemini client", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (m *GeminiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), nil)
	if err != nil {
		if isHTTPStatus(err, http.StatusTooManyRequests) {
			return "", errs.NewRateLimitError("gemini", 0)
		}
		return "", errs.NewServiceUnreachableError("gemini", err)
	}
	return resp.Text(), nil
}

func isHTTPStatus(err error, code int) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == code
	}
	return false
}

// ContentGenerator builds the prompt, calls the model and parses its answer.
type ContentGenerator struct {
	model  TextModel
	logger zerolog.Logger
}

// NewContentGenerator accepts a nil model; every call then fails with a
// configuration error before touching the network.
func NewContentGenerator(model TextModel) *ContentGenerator {
	return &ContentGenerator{
		model:  model,
		logger: log.With().Str("service", "contentGenerator").Logger(),
	}
}

func (g *ContentGenerator) GenerateCandidates(ctx context.Context, level models.Level, domain models.Domain) ([]models.Candidate, error) {
	if g.model == nil {
		return nil, errs.NewConfigError("GOOGLE_API_KEY", nil)
	}

	text, err := g.model.GenerateText(ctx, BuildPrompt(level, domain))
	if err != nil {
		return nil, err
	}

	candidates, err := ParseCandidates(text, domain)
	if err != nil {
		g.logger.Warn().Err(err).Str("level", string(level)).Str("domain", string(domain)).Int("responseLength", len(text)).Msg("rejected model response")
		return nil, err
	}
	return candidates, nil
}
