package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/search/bleve"
	filestore "github.com/custodia-labs/canvas-sync/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/storage/sqlite"
	vectormemory "github.com/custodia-labs/canvas-sync/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driving/cli"
	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driving"
	"github.com/custodia-labs/canvas-sync/internal/core/services"
	"github.com/custodia-labs/canvas-sync/internal/handlers"
	"github.com/custodia-labs/canvas-sync/internal/logger"
	"github.com/custodia-labs/canvas-sync/internal/normalisers/html"
	"github.com/custodia-labs/canvas-sync/internal/normalisers/pdf"
	"github.com/custodia-labs/canvas-sync/internal/normalisers/pptx"
	"github.com/custodia-labs/canvas-sync/internal/postprocessors"
)

// Default file names inside the configuration directory.
const (
	sqliteStateFile = "state.db"
	jsonStateFile   = "sync_state.json"
)

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return file.DefaultDir()
}

// openSettings loads .env files and opens the TOML config store.
func openSettings(configDir string) (driving.SettingsService, error) {
	dir, err := resolveDir(configDir)
	if err != nil {
		return nil, err
	}
	if err := file.LoadDotEnv(".env", filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return services.NewSettingsService(store), nil
}

// buildServices wires the driven adapters selected by settings.
//
//nolint:funlen // Composition root
func buildServices(ctx context.Context, settings domain.Settings, configDir string) (*cli.Services, error) {
	dir, err := resolveDir(configDir)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, error) {
		_ = closeAll()
		return nil, err
	}

	state, err := openStateStore(stateSettings(settings), dir)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, state.Close)

	tracker, err := services.NewTracker(ctx, state)
	if err != nil {
		return fail(err)
	}

	client, err := canvas.NewClient(canvas.Config{
		BaseURL:            settings.Canvas.BaseURL,
		Token:              settings.Canvas.Token,
		RateLimitThreshold: settings.Canvas.RateLimitThreshold,
	})
	if err != nil {
		return fail(err)
	}

	processor := services.NewDocumentProcessor(
		postprocessors.NewChunker(settings.Chunk),
		html.New(), pdf.New(), pptx.New(),
	)
	registry := handlers.NewDefaultRegistry(client, processor,
		handlers.WithMaxFileSize(settings.Ingest.MaxFileSizeBytes()))

	embedder, err := openEmbedder(ctx, settings.Embedding)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, embedder.Close)

	vectors, err := openVectorIndex(ctx, settings.Vector)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, vectors.Close)

	var keywords driven.KeywordIndex
	if settings.Search.IndexPath != "" {
		idx, err := bleve.Open(settings.Search.IndexPath)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, idx.Close)
		keywords = idx
	}

	ingest := services.NewIngestService(
		handlers.NewCourseDirectory(client),
		registry,
		tracker,
		embedder,
		vectors,
		keywords,
		settings.Ingest,
		settings.Canvas.CourseIDs,
	)

	return &cli.Services{
		Ingest:  ingest,
		Status:  tracker,
		Courses: ingest,
		Close:   closeAll,
	}, nil
}

// stateSettings keeps sync state in memory when the vector index is.
// Durable state is only meaningful next to a durable index.
func stateSettings(s domain.Settings) domain.StateSettings {
	if s.Vector.DatabaseURL == "" && s.State.Backend != domain.StateBackendMemory {
		logger.Warn("DATABASE_URL is not set; sync state is kept in memory as well")
		return domain.StateSettings{Backend: domain.StateBackendMemory}
	}
	return s.State
}

func openStateStore(s domain.StateSettings, dir string) (driven.SyncStateStore, error) {
	switch s.Backend {
	case domain.StateBackendMemory:
		logger.Warn("Sync state is kept in memory and lost on exit")
		return memory.NewSyncStateStore(), nil
	case domain.StateBackendFile:
		path := s.Path
		if path == "" {
			path = filepath.Join(dir, jsonStateFile)
		}
		logger.Debug("Sync state: %s", path)
		return filestore.NewStore(path)
	default:
		path := s.Path
		if path == "" {
			path = filepath.Join(dir, sqliteStateFile)
		}
		logger.Debug("Sync state: %s", path)
		return sqlite.NewStore(path)
	}
}

func openEmbedder(ctx context.Context, s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if s.Model == hashing.ModelName {
		logger.Warn("Using the offline hashing embedder")
		return hashing.New(0), nil
	}
	svc, err := ollama.NewEmbeddingService(ollama.Config{
		BaseURL: s.BaseURL,
		Model:   s.Model,
	})
	if err != nil {
		return nil, err
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

func openVectorIndex(ctx context.Context, s domain.VectorSettings) (driven.VectorIndex, error) {
	if s.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set; chunks are kept in memory")
		return vectormemory.New(), nil
	}
	return pgvector.New(ctx, pgvector.Config{
		DatabaseURL: s.DatabaseURL,
		Table:       s.Table,
	})
}
