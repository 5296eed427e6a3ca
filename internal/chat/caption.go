package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// CaptionRequest is one captioning call. ImageBase64 carries the raw image
// bytes in standard base64.
type CaptionRequest struct {
	ImageBase64       string
	MIMEType          string
	SystemInstruction string
	UserPrompt        string
}

// CaptionResult is the model's reply.
type CaptionResult struct {
	Text string
}

// contentGenerator is satisfied by (*genai.Client).Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiCaptioner writes captions with a Gemini model.
type GeminiCaptioner struct {
	models contentGenerator
	model  string
}

// NewGeminiClient creates a Gemini API client for the given key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiCaptioner returns a captioner using model, or GetModelName() when
// model is empty.
func NewGeminiCaptioner(client *genai.Client, model string) *GeminiCaptioner {
	if model == "" {
		model = GetModelName()
	}
	return &GeminiCaptioner{models: client.Models, model: model}
}

// Model reports the model ID used for captioning.
func (g *GeminiCaptioner) Model() string {
	return g.model
}

// Caption sends the image with the system instruction and user prompt and
// returns the model text. Failures come back as *ProviderError.
func (g *GeminiCaptioner) Caption(ctx context.Context, req CaptionRequest) (CaptionResult, error) {
	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return CaptionResult{}, &ProviderError{Kind: KindInvalidInput, Message: "image is not valid base64", Err: err}
	}
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		},
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			{Text: req.UserPrompt},
		},
	}}

	log.Debug().
		Str("model", g.model).
		Str("mime_type", mimeType).
		Int("image_bytes", len(data)).
		Int("instruction_length", len(req.SystemInstruction)).
		Msg("Starting Gemini API call for caption generation")

	callStart := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	duration := time.Since(callStart)
	if err != nil {
		perr := ClassifyError(err)
		log.Error().Err(err).Str("kind", perr.Kind.String()).Dur("duration", duration).Msg("Failed to generate caption from Gemini")
		return CaptionResult{}, perr
	}
	if resp == nil {
		return CaptionResult{}, &ProviderError{Kind: KindUnknown, Message: "received empty response from Gemini API"}
	}

	text := resp.Text()
	if text == "" {
		return CaptionResult{}, &ProviderError{Kind: KindUnknown, Message: "Gemini returned no caption text"}
	}

	log.Info().
		Int("caption_length", len(text)).
		Dur("duration", duration).
		Msg("Caption generation complete")

	return CaptionResult{Text: text}, nil
}
