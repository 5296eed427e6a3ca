package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ValidateAPIKey makes a minimal text request to confirm the key works
// before the server starts accepting uploads. Returns a *ProviderError on
// failure.
func ValidateAPIKey(ctx context.Context, client *genai.Client, model string) error {
	return validateWith(ctx, client.Models, model)
}

func validateWith(ctx context.Context, models contentGenerator, model string) error {
	if model == "" {
		model = GetModelName()
	}
	log.Debug().Str("model", model).Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := models.GenerateContent(ctx, model, genai.Text("hi"), nil)
	elapsed := time.Since(start)
	if err != nil {
		perr := ClassifyError(err)
		log.Error().Err(err).Str("kind", perr.Kind.String()).Dur("duration", elapsed).Msg("API key validation failed")
		return perr
	}
	if resp == nil || len(resp.Candidates) == 0 {
		log.Warn().Msg("API key validation returned empty response")
		return &ProviderError{Kind: KindUnknown, Message: "API returned empty response"}
	}

	log.Info().Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}
