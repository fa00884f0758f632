package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/yanqian/knowledgebase/internal/domain/question"
	apperrors "github.com/yanqian/knowledgebase/pkg/errors"
	"github.com/yanqian/knowledgebase/pkg/metrics"
)

// DefaultMaxTokens is the input limit of the OpenAI embedding models.
const DefaultMaxTokens = 8191

type embeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIConfig configures the OpenAI-compatible embedder.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings API and asks for
// question.EmbeddingDimensions wide vectors.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger

	tokensOnce sync.Once
	tokens     tokenCounter
}

// NewOpenAIEmbedder constructs an embedder backed by the official SDK. Retries are disabled.
func NewOpenAIEmbedder(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("embedding api key cannot be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("embedding model cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	logger = logger.With("component", "embedder.openai")
	return &OpenAIEmbedder{
		client:    &client,
		model:     strings.TrimSpace(cfg.Model),
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// Embed requests a single embedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.tokensOnce.Do(func() {
		if e.tokens == nil {
			e.tokens = newTokenCounter(defaultEncoding, e.logger)
		}
	})
	if count := e.tokens.Count(text); count > e.maxTokens {
		return nil, apperrors.Invalid(fmt.Sprintf("text too long for embedding: %d tokens, limit %d", count, e.maxTokens))
	}

	start := time.Now()
	req := embeddingRequest{
		Model:          e.model,
		Input:          []string{text},
		Dimensions:     question.EmbeddingDimensions,
		EncodingFormat: "float",
	}
	var out embeddingResponse
	err := e.client.Post(ctx, "/embeddings", req, &out)
	metrics.EmbeddingDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	if err != nil {
		e.logger.Error("embedding request failed", "model", e.model, "error", err)
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("create embedding: %s", out.Error.Message)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response empty")
	}

	src := out.Data[0].Embedding
	vector := make([]float32, len(src))
	for i, v := range src {
		vector[i] = float32(v)
	}
	if err := question.CheckDimensions(vector); err != nil {
		return nil, err
	}
	return vector, nil
}

var _ question.Embedder = (*OpenAIEmbedder)(nil)
