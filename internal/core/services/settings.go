package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCanvasBaseURL   = "canvas.base_url"
	keyCanvasToken     = "canvas.token"
	keyCanvasCourseIDs = "canvas.course_ids"
	keyRateLimit       = "canvas.rate_limit_threshold"
	keyChunkSize       = "chunk.size"
	keyChunkOverlap    = "chunk.overlap"
	keyBatchSize       = "ingest.batch_size"
	keyWorkers         = "ingest.workers"
	keyMaxFileSizeMB   = "ingest.max_file_size_mb"
	keyContentTypes    = "ingest.content_types"
	keyPruneDeleted    = "ingest.prune_deleted"
	keyStateBackend    = "state.backend"
	keyStatePath       = "state.path"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyDatabaseURL     = "vector.database_url"
	keyVectorTable     = "vector.table"
	keySearchIndexPath = "search.index_path"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvCanvasToken     = "CANVAS_API_TOKEN"
	EnvCanvasBaseURL   = "CANVAS_BASE_URL"
	EnvCanvasCourseIDs = "CANVAS_COURSE_IDS"
	EnvChunkSize       = "CHUNK_SIZE"
	EnvChunkOverlap    = "CHUNK_OVERLAP"
	EnvBatchSize       = "INGEST_BATCH_SIZE"
	EnvWorkers         = "INGEST_MAX_WORKERS"
	EnvRateLimit       = "INGEST_RATE_LIMIT_THRESHOLD"
	EnvMaxFileSizeMB   = "MAX_FILE_SIZE_MB"
	EnvContentTypes    = "INGEST_CONTENT_TYPES"
	EnvOllamaBaseURL   = "OLLAMA_BASE_URL"
	EnvEmbeddingModel  = "EMBEDDING_MODEL"
	EnvDatabaseURL     = "DATABASE_URL"
	EnvStateBackend    = "STATE_BACKEND"
	EnvStatePath       = "STATE_PATH"
	EnvSearchIndexPath = "SEARCH_INDEX_PATH"
)

// SettingsService resolves application settings from a config store and
// the process environment.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading the process
// environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Get returns the effective settings.
func (s *SettingsService) Get() (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if err := s.applyStore(&settings); err != nil {
		return settings, err
	}
	if err := s.applyEnv(&settings); err != nil {
		return settings, err
	}
	return settings, settings.Validate()
}

// SetCanvasToken stores the API token.
func (s *SettingsService) SetCanvasToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keyCanvasToken, token); err != nil {
		return fmt.Errorf("save canvas token: %w", err)
	}
	return nil
}

// SetCanvasBaseURL stores the Canvas root URL without a trailing slash.
func (s *SettingsService) SetCanvasBaseURL(baseURL string) error {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return fmt.Errorf("%w: empty base URL", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keyCanvasBaseURL, baseURL); err != nil {
		return fmt.Errorf("save canvas base_url: %w", err)
	}
	return nil
}

// ConfigPath returns the config store location.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

func (s *SettingsService) applyStore(out *domain.Settings) error {
	out.Canvas.BaseURL = s.getString(keyCanvasBaseURL, out.Canvas.BaseURL)
	out.Canvas.Token = s.getString(keyCanvasToken, out.Canvas.Token)
	out.Canvas.CourseIDs = s.getStrings(keyCanvasCourseIDs, out.Canvas.CourseIDs)
	out.Canvas.RateLimitThreshold = s.getFloat(keyRateLimit, out.Canvas.RateLimitThreshold)
	out.Chunk.Size = s.getInt(keyChunkSize, out.Chunk.Size)
	out.Chunk.Overlap = s.getInt(keyChunkOverlap, out.Chunk.Overlap)
	out.Ingest.BatchSize = s.getInt(keyBatchSize, out.Ingest.BatchSize)
	out.Ingest.Workers = s.getInt(keyWorkers, out.Ingest.Workers)
	out.Ingest.MaxFileSizeMB = s.getInt(keyMaxFileSizeMB, out.Ingest.MaxFileSizeMB)
	out.Ingest.PruneDeleted = s.getBool(keyPruneDeleted, out.Ingest.PruneDeleted)
	out.State.Backend = domain.StateBackend(s.getString(keyStateBackend, string(out.State.Backend)))
	out.State.Path = s.getString(keyStatePath, out.State.Path)
	out.Embedding.Model = s.getString(keyEmbedModel, out.Embedding.Model)
	out.Embedding.BaseURL = s.getString(keyEmbedBaseURL, out.Embedding.BaseURL)
	out.Vector.DatabaseURL = s.getString(keyDatabaseURL, out.Vector.DatabaseURL)
	out.Vector.Table = s.getString(keyVectorTable, out.Vector.Table)
	out.Search.IndexPath = s.getString(keySearchIndexPath, out.Search.IndexPath)

	if names := s.getStrings(keyContentTypes, nil); len(names) > 0 {
		types, err := parseContentTypes(names)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrConfigInvalid, keyContentTypes, err)
		}
		out.Ingest.ContentTypes = types
	}
	return nil
}

//nolint:gocognit // One branch per variable
func (s *SettingsService) applyEnv(out *domain.Settings) error {
	str := func(name string, dst *string) {
		if v, ok := s.env(name); ok {
			*dst = v
		}
	}
	var problems []string
	num := func(name string, dst *int) {
		if v, ok := s.env(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s=%q is not an integer", name, v))
				return
			}
			*dst = n
		}
	}

	str(EnvCanvasToken, &out.Canvas.Token)
	str(EnvCanvasBaseURL, &out.Canvas.BaseURL)
	str(EnvOllamaBaseURL, &out.Embedding.BaseURL)
	str(EnvEmbeddingModel, &out.Embedding.Model)
	str(EnvDatabaseURL, &out.Vector.DatabaseURL)
	str(EnvStatePath, &out.State.Path)
	str(EnvSearchIndexPath, &out.Search.IndexPath)
	num(EnvChunkSize, &out.Chunk.Size)
	num(EnvChunkOverlap, &out.Chunk.Overlap)
	num(EnvBatchSize, &out.Ingest.BatchSize)
	num(EnvWorkers, &out.Ingest.Workers)
	num(EnvMaxFileSizeMB, &out.Ingest.MaxFileSizeMB)

	if v, ok := s.env(EnvRateLimit); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s=%q is not a number", EnvRateLimit, v))
		} else {
			out.Canvas.RateLimitThreshold = f
		}
	}
	if v, ok := s.env(EnvStateBackend); ok {
		out.State.Backend = domain.StateBackend(strings.ToLower(v))
	}
	if v, ok := s.env(EnvCanvasCourseIDs); ok {
		out.Canvas.CourseIDs = splitList(v)
	}
	if v, ok := s.env(EnvContentTypes); ok {
		types, err := parseContentTypes(splitList(v))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", EnvContentTypes, err))
		} else if len(types) > 0 {
			out.Ingest.ContentTypes = types
		}
	}

	out.Canvas.BaseURL = strings.TrimRight(out.Canvas.BaseURL, "/")
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// env returns a non-blank environment value.
func (s *SettingsService) env(name string) (string, bool) {
	v, ok := s.lookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Helper methods

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetInt(key)
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetFloat(key)
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetBool(key)
	}
	return defaultVal
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	if val := s.configStore.GetStringSlice(key); len(val) > 0 {
		return val
	}
	return defaultVal
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseContentTypes(names []string) ([]domain.ContentType, error) {
	types := make([]domain.ContentType, 0, len(names))
	for _, name := range names {
		t, err := domain.ParseContentType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
