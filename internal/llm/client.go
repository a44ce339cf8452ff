package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
	"github.com/teemow/gmail-ai-agent/internal/logging"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultModel          = "gpt-3.5-turbo"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultTemperature    = 0.7
)

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Recorder receives one observation per API call. It is satisfied by the
// instrumentation package's Metrics.
type Recorder interface {
	RecordLLMRequest(ctx context.Context, operation, model, status string, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	// Temperature defaults to DefaultTemperature when nil.
	Temperature *float64
}

// Client is an OpenAI backed Completer and Embedder.
type Client struct {
	api            openai.Client
	model          string
	embeddingModel string
	temperature    float64
	recorder       Recorder
	logger         *slog.Logger
}

var (
	_ Completer = (*Client)(nil)
	_ Embedder  = (*Client)(nil)
)

// NewClient creates a Client. recorder and logger may be nil.
func NewClient(cfg Config, recorder Recorder, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Failures surface to the caller immediately; there is no retry policy.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:            openai.NewClient(opts...),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    temperature,
		recorder:       recorder,
		logger:         logging.WithService(logger, "openai"),
	}
}

// Model returns the chat model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Model:       shared.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	})
	c.record(ctx, "complete", c.model, err, start)
	if err != nil {
		return "", apperr.Upstream("llm completion failed", err)
	}

	if len(completion.Choices) == 0 {
		return "", apperr.New(apperr.KindMalformedResponse, "llm returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// Embed returns one embedding per text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	c.record(ctx, "embed", c.embeddingModel, err, start)
	if err != nil {
		return nil, apperr.Upstream("embedding request failed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, apperr.New(apperr.KindMalformedResponse,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, apperr.New(apperr.KindMalformedResponse, "embedding index out of range")
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}
	return out, nil
}

func (c *Client) record(ctx context.Context, operation, model string, err error, start time.Time) {
	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		c.logger.Warn("openai request failed",
			logging.Operation(operation),
			slog.String("model", model),
			logging.Err(err))
	}
	if c.recorder != nil {
		c.recorder.RecordLLMRequest(ctx, operation, model, status, time.Since(start))
	}
}
