package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed tiers.yaml
var tiersYAML []byte

type Config struct {
	Embedding  EmbeddingConfig
	Recognizer RecognizerConfig
	Database   DatabaseConfig
	Gallery    GalleryConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	QA         QAConfig
	Tiers      TiersConfig
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 128
}

type RecognizerConfig struct {
	Threshold     float64       // acceptance threshold for the matcher (default 0.6)
	CycleInterval time.Duration // one decision cycle per interval (default 1s)
	CameraURL     string        // HTTP snapshot URL of the camera
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional; gallery is in-memory without it)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type GalleryConfig struct {
	Path string // Path for local gob persistence of the gallery (optional)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type QAConfig struct {
	Provider string // "openai" or "gemini", defaults to openai
}

// TiersConfig holds the display confidence tiers used by the renderer.
// Tiers are a display concept only; they never affect accept/reject decisions.
type TiersConfig struct {
	Tiers []TierSpec `yaml:"tiers"`
}

type TierSpec struct {
	Name  string  `yaml:"name"`
	Min   float64 `yaml:"min"`   // lowest score (inclusive) that falls in this tier
	Color string  `yaml:"color"` // hex RGB, e.g. "#2ecc71"
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var tiers TiersConfig
	if err := yaml.Unmarshal(tiersYAML, &tiers); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded tiers.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		Recognizer: RecognizerConfig{
			Threshold:     envFloat("MATCH_THRESHOLD", 0.6),
			CycleInterval: time.Duration(envInt("CYCLE_INTERVAL_MS", 1000)) * time.Millisecond,
			CameraURL:     os.Getenv("CAMERA_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Gallery: GalleryConfig{
			Path: os.Getenv("GALLERY_PATH"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		QA: QAConfig{
			Provider: os.Getenv("QA_PROVIDER"),
		},
		Tiers: tiers,
	}
}
