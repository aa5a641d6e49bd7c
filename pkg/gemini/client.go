// Package gemini provides the extraction-provider client. It sends a card
// image (plus the OCR-detected fields, when available) to Gemini and returns
// per-field values with quality annotations.
package gemini

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/bhvbhushan/card-capture-api/internal/resilience"
)

// FieldAnnotation is one field's value and quality indicators as returned by
// the model. Enum fields are passed through raw; normalization happens in the
// pipeline, which tolerates drifted values.
type FieldAnnotation struct {
	Value         string `json:"value"`
	OriginalValue string `json:"original_value,omitempty"`
	EditMade      bool   `json:"edit_made"`
	EditType      string `json:"edit_type"`
	TextClarity   string `json:"text_clarity"`
	Certainty     string `json:"certainty"`
	Notes         string `json:"notes,omitempty"`
}

// Client is the extraction provider interface.
type Client interface {
	// ExtractCard sends a card image and returns the field annotations.
	ExtractCard(ctx context.Context, image []byte, mimeType string) (map[string]FieldAnnotation, error)
}

// Option configures the client.
type Option func(*client)

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the default retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	api     *genai.Client
	model   string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates a Gemini-backed extraction client.
func New(ctx context.Context, apiKey, model string, opts ...Option) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, eris.New("gemini: api key is empty")
	}
	api, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	c := &client{
		api:   api,
		model: strings.TrimSpace(model),
		retry: resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("gemini", "extract_card")
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ExtractCard sends the card image through the model and parses the
// field-annotation JSON response.
func (c *client) ExtractCard(ctx context.Context, image []byte, mimeType string) (map[string]FieldAnnotation, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "gemini: rate limit wait")
		}
	}

	m := c.api.GenerativeModel(c.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extractionPrompt)},
	}

	parts := []genai.Part{
		genai.Text("Transcribe this inquiry card. Respond with JSON only."),
		&genai.Blob{MIMEType: mimeType, Data: image},
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return m.GenerateContent(ctx, parts...)
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	text := firstText(resp)
	if text == "" {
		return nil, eris.New("gemini: empty response")
	}

	annotations := make(map[string]FieldAnnotation)
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &annotations); err != nil {
		return nil, eris.Wrap(err, "gemini: parse response JSON")
	}
	return annotations, nil
}

// firstText returns the first text part of the first candidate.
func firstText(resp *genai.GenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

// stripCodeFences removes a ```json ... ``` wrapper the model sometimes adds
// despite the JSON response MIME type.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func ptrFloat32(v float32) *float32 { return &v }
