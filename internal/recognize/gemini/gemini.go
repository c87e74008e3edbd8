// Package gemini recognizes slot text with a Gemini vision model.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"strings"

	"github.com/raine/relic-reward-prices/internal/recognize"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash-lite"

const prompt = `The image shows the name of a single reward item from the game Warframe, cut out of the relic reward screen.

Transcribe the item name exactly as shown. Respond in JSON with:
- text: the item name, empty string if no name is legible
- confidence: your confidence in the transcription between 0 and 1`

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"text":       {Type: genai.TypeString},
		"confidence": {Type: genai.TypeNumber},
	},
	Required: []string{"text", "confidence"},
}

// Engine asks Gemini to read the slot crop.
type Engine struct {
	client *genai.Client
	model  string
}

// New creates an engine authenticated with apiKey.
func New(ctx context.Context, apiKey string) (*Engine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Engine{client: client, model: geminiModel}, nil
}

type transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (e *Engine) Recognize(ctx context.Context, crop recognize.Crop) (reward.Hypothesis, error) {
	h := reward.Hypothesis{Slot: crop.Slot}
	if recognize.InkBounds(crop.Mask).Empty() {
		return h, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop.Image); err != nil {
		return h, fmt.Errorf("failed to encode crop: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		{InlineData: &genai.Blob{Data: buf.Bytes(), MIMEType: "image/png"}},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, config)
	if err != nil {
		return h, fmt.Errorf("failed to generate content: %w", err)
	}

	text := result.Text()
	log.Debug().Int("slot", crop.Slot).Str("response", text).Msg("gemini recognition response")

	t, err := parseTranscription(text)
	if err != nil {
		return h, err
	}
	h.Text = t.Text
	h.Confidence = t.Confidence
	return h, nil
}

func parseTranscription(text string) (*transcription, error) {
	// Clean up the response - remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var t transcription
	if err := json.Unmarshal([]byte(text), &t); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, text)
	}
	if t.Confidence < 0 {
		t.Confidence = 0
	}
	if t.Confidence > 1 {
		t.Confidence = 1
	}
	return &t, nil
}
