// Package gemini provides a client for the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// ModelName is the default Gemini model for extraction and advice.
const ModelName = "gemini-2.5-flash"

// Default per-call timeouts.
const (
	DefaultExtractionTimeout = 30 * time.Second
	DefaultAdviceTimeout     = 60 * time.Second
	DefaultVoiceTimeout      = 20 * time.Second
)

// ErrEmptyResponse indicates Gemini returned no text.
var ErrEmptyResponse = errors.New("empty response from Gemini")

// ErrMalformedResponse indicates the response text was not the expected JSON.
var ErrMalformedResponse = errors.New("malformed response from Gemini")

// ErrTimeout indicates the Gemini API call timed out.
var ErrTimeout = errors.New("gemini request timed out")

var tracer = otel.Tracer("gitlab.com/yelinaung/smart-finance/internal/gemini")

// ContentGenerator defines the interface for generating content via Gemini.
// This abstraction enables testing without making actual API calls.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// modelsAdapter wraps *genai.Models to implement ContentGenerator.
type modelsAdapter struct {
	models *genai.Models
}

func (m *modelsAdapter) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	resp, err := m.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("genai.GenerateContent: %w", err)
	}
	return resp, nil
}

// Timeouts bounds each kind of Gemini call.
type Timeouts struct {
	Extraction time.Duration
	Advice     time.Duration
	Voice      time.Duration
}

// Client wraps the Gemini API client.
type Client struct {
	generator  ContentGenerator
	model      string
	timeouts   Timeouts
	httpClient *http.Client
	now        func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeouts overrides the per-call timeouts. Zero fields keep their default.
func WithTimeouts(t Timeouts) Option {
	return func(c *Client) {
		if t.Extraction > 0 {
			c.timeouts.Extraction = t.Extraction
		}
		if t.Advice > 0 {
			c.timeouts.Advice = t.Advice
		}
		if t.Voice > 0 {
			c.timeouts.Voice = t.Voice
		}
	}
}

// WithHTTPClient sets the HTTP client used by the SDK, e.g. one with an otelhttp transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func newClient(opts []Option) *Client {
	c := &Client{
		model: ModelName,
		now:   time.Now,
		timeouts: Timeouts{
			Extraction: DefaultExtractionTimeout,
			Advice:     DefaultAdviceTimeout,
			Voice:      DefaultVoiceTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient creates a new Gemini client with the provided API key.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	c := newClient(opts)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.generator = &modelsAdapter{models: client.Models}
	return c, nil
}

// NewClientWithGenerator creates a Client with a custom ContentGenerator.
// This is primarily used for testing with mock generators.
func NewClientWithGenerator(generator ContentGenerator, opts ...Option) *Client {
	c := newClient(opts)
	c.generator = generator
	return c
}

// generate runs one bounded request and returns the concatenated response text.
func (c *Client) generate(
	ctx context.Context,
	op string,
	timeout time.Duration,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (string, error) {
	if c.generator == nil {
		return "", errors.New("gemini client not initialized")
	}

	ctx, span := tracer.Start(ctx, "gemini."+op, trace.WithAttributes(
		attribute.String("gemini.model", c.model),
	))
	defer span.End()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.generator.GenerateContent(timeoutCtx, c.model, contents, config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Log.Warn().Str("op", op).Dur("timeout", timeout).Msg("Gemini call timed out")
			return "", ErrTimeout
		}
		logger.Log.Error().Err(err).Str("op", op).Msg("Gemini API call failed")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := responseText(resp)
	logger.Log.Debug().
		Str("op", op).
		Dur("elapsed", time.Since(start)).
		Int("response_len", len(text)).
		Msg("Gemini call finished")

	if strings.TrimSpace(text) == "" {
		span.SetStatus(codes.Error, "empty response")
		return "", ErrEmptyResponse
	}

	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func userContent(parts ...*genai.Part) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: parts}}
}
