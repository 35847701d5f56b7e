// Package ollama provides an embedding service adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = domain.DefaultOllamaBaseURL
	DefaultModel     = domain.DefaultEmbeddingModel
	DefaultTimeout   = 60 * time.Second
	DefaultBatchSize = 32
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout bounds each request (default: 60s).
	Timeout time.Duration

	// BatchSize is the number of texts sent per request.
	BatchSize int

	// Dimensions is the expected vector size. Zero learns it from the
	// first response.
	Dimensions int

	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// EmbeddingService generates embeddings using Ollama.
type EmbeddingService struct {
	embedder embeddings.Embedder
	client   *http.Client
	baseURL  string
	model    string

	mu         sync.RWMutex
	dimensions int
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	llm, err := lcollama.New(
		lcollama.WithModel(cfg.Model),
		lcollama.WithServerURL(cfg.BaseURL),
		lcollama.WithHTTPClient(client),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama: create client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama: create embedder: %w", err)
	}

	return &EmbeddingService{
		embedder:   embedder,
		client:     client,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// EmbedBatch generates embeddings for multiple texts, in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama: embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d texts", len(vectors), len(texts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range vectors {
		if s.dimensions == 0 {
			s.dimensions = len(v)
			logger.Debug("ollama: %s produces %d-dimensional vectors", s.model, s.dimensions)
		}
		if len(v) != s.dimensions {
			return nil, fmt.Errorf("ollama: embedding %d has %d dimensions, want %d", i, len(v), s.dimensions)
		}
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size, zero until known.
func (s *EmbeddingService) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama: ping failed: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("%w: ollama: API returned status %d: %s",
			domain.ErrEmbeddingUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
