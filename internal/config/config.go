package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ctxslim/ctxslim/internal/classify"
	"github.com/ctxslim/ctxslim/internal/detect"
	"github.com/ctxslim/ctxslim/internal/engine"
	"github.com/ctxslim/ctxslim/internal/plan"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Archive / analysis persistence
	DBPath string

	// Optional YAML rule set; empty means the built-in rules.
	RulesFile string

	// Engine policy
	FreshnessDays       int
	DuplicateSimilarity float64
	BloatMultiplier     float64
	VerboseTrimPercent  float64
	TrimRatio           float64
	AggressiveTrimRatio float64
	ScoreThreshold      int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state
	JobTTL time.Duration

	// Upload limits
	MaxUploadBytes int64
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("CTXSLIM_API_KEY"),
		DBPath: envOr("CTXSLIM_DB", "ctxslim.db"),

		RulesFile: os.Getenv("CTXSLIM_RULES_FILE"),

		FreshnessDays:       envInt("FRESHNESS_DAYS", 60),
		DuplicateSimilarity: envFloat("DUPLICATE_SIMILARITY", 0.8),
		BloatMultiplier:     envFloat("BLOAT_MULTIPLIER", 2.0),
		VerboseTrimPercent:  envFloat("VERBOSE_TRIM_PCT", 0.3),
		TrimRatio:           envFloat("TRIM_RATIO", 0.3),
		AggressiveTrimRatio: envFloat("AGGRESSIVE_TRIM_RATIO", 0.5),
		ScoreThreshold:      envInt("SCORE_THRESHOLD", 70),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB
	}

	if cfg.FreshnessDays <= 0 {
		cfg.FreshnessDays = 60
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("CTXSLIM_API_KEY is required")
	}
	if c.DuplicateSimilarity <= 0 || c.DuplicateSimilarity > 1 {
		return fmt.Errorf("DUPLICATE_SIMILARITY must be in (0,1]")
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 100 {
		return fmt.Errorf("SCORE_THRESHOLD must be in [0,100]")
	}
	return nil
}

// EngineConfig maps the environment-driven knobs onto the engine's policy.
func (c Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Classifier = classify.Config{
		FreshnessWindow: time.Duration(c.FreshnessDays) * 24 * time.Hour,
	}
	det := detect.DefaultConfig()
	det.DuplicateSimilarity = c.DuplicateSimilarity
	det.BloatMultiplier = c.BloatMultiplier
	det.VerboseTrimPercent = c.VerboseTrimPercent
	cfg.Detector = det
	cfg.Planner = plan.Config{
		TrimRatio:           c.TrimRatio,
		AggressiveTrimRatio: c.AggressiveTrimRatio,
	}
	cfg.ScoreThreshold = c.ScoreThreshold
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
