package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/JIVTESH28/facewatch/internal/ai"
	"github.com/JIVTESH28/facewatch/internal/capture"
	"github.com/JIVTESH28/facewatch/internal/config"
	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/gallery"
	"github.com/JIVTESH28/facewatch/internal/storage/postgres"
)

// runtime bundles the collaborators most commands need: the in-memory
// gallery, the embedding client and the optional persistence mirrors.
type runtime struct {
	cfg      *config.Config
	gallery  *gallery.Gallery
	embedder *embedding.Client
	pool     *postgres.Pool
	repo     *postgres.IdentityRepository
}

// newRuntime loads config, connects the optional database mirror and seeds
// the gallery. The database wins over the local gallery file when both are
// configured.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()

	rt := &runtime{
		cfg:      cfg,
		gallery:  gallery.New(cfg.Embedding.Dim),
		embedder: embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim),
	}
	rt.gallery.EnableIndex()

	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		rt.pool = pool
		rt.repo = postgres.NewIdentityRepository(pool)

		records, err := rt.repo.LoadAll(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to load identities: %w", err)
		}
		skipped := 0
		for _, rec := range records {
			if _, err := rt.gallery.Insert(rec); err != nil {
				skipped++
			}
		}
		if skipped > 0 {
			fmt.Printf("Warning: skipped %d stored identities with wrong dimension\n", skipped)
		}
		fmt.Printf("Loaded %d identities from PostgreSQL\n", rt.gallery.Count())
	} else if cfg.Gallery.Path != "" {
		if err := rt.gallery.LoadFrom(cfg.Gallery.Path); err != nil {
			fmt.Printf("Warning: failed to load gallery file: %v\n", err)
		} else if rt.gallery.Count() > 0 {
			fmt.Printf("Loaded %d identities from %s\n", rt.gallery.Count(), cfg.Gallery.Path)
		}
	}

	return rt, nil
}

// Close releases the database pool if one was opened.
func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}

// mirror pushes one newly stored record to the configured persistence
// backends.
func (rt *runtime) mirror(ctx context.Context, rec gallery.EnrolledIdentity) error {
	if rt.repo != nil {
		if err := rt.repo.Save(ctx, rec); err != nil {
			return fmt.Errorf("failed to save identity to database: %w", err)
		}
	}
	return rt.saveGalleryFile()
}

// saveGalleryFile writes the gob snapshot if a gallery path is configured.
func (rt *runtime) saveGalleryFile() error {
	if rt.cfg.Gallery.Path == "" {
		return nil
	}
	if err := rt.gallery.SaveTo(rt.cfg.Gallery.Path); err != nil {
		return fmt.Errorf("failed to save gallery file: %w", err)
	}
	return nil
}

// buildProvider creates the configured Q&A provider, or nil when no
// credentials are set.
func buildProvider(ctx context.Context, cfg *config.Config) (ai.Provider, error) {
	switch cfg.QA.Provider {
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required for the gemini provider")
		}
		return ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey)
	case "openai", "":
		if cfg.OpenAI.Token == "" {
			if cfg.QA.Provider == "" {
				return nil, nil
			}
			return nil, errors.New("OPENAI_TOKEN environment variable is required for the openai provider")
		}
		return ai.NewOpenAIProvider(cfg.OpenAI.Token), nil
	default:
		return nil, fmt.Errorf("unknown QA provider %q", cfg.QA.Provider)
	}
}

// buildSource picks the frame source: a local image directory when given,
// otherwise the configured camera snapshot URL.
func buildSource(cfg *config.Config, dir string) (capture.FrameSource, error) {
	if dir != "" {
		return capture.NewFileSource(dir), nil
	}
	if cfg.Recognizer.CameraURL == "" {
		return nil, errors.New("CAMERA_URL environment variable or --dir flag is required")
	}
	return capture.NewSnapshotSource(cfg.Recognizer.CameraURL), nil
}
