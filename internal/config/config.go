package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/mtlgen/internal/style"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Templates and output
	TemplateDir string
	OutputDir   string

	// Styling
	StyleProfilePath string
	// ShadeStepsHeader is nil when SHADE_STEPS_HEADER is unset, leaving the
	// profile's own policy in place.
	ShadeStepsHeader *bool

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Request limits
	MaxDefinitionBytes int64

	// Job state
	JobTTL time.Duration

	// Export paths
	ExportRetries int
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("MTLGEN_API_KEY"),

		TemplateDir: envOr("TEMPLATE_DIR", "templates"),
		OutputDir:   envOr("OUTPUT_DIR", "output"),

		StyleProfilePath: os.Getenv("STYLE_PROFILE"),
		ShadeStepsHeader: envBoolPtr("SHADE_STEPS_HEADER"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxDefinitionBytes: envInt64("MAX_DEFINITION_BYTES", 5<<20),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		ExportRetries: envInt("EXPORT_RETRIES", 3),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxDefinitionBytes <= 0 {
		cfg.MaxDefinitionBytes = 5 << 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ExportRetries < 0 {
		cfg.ExportRetries = 0
	}

	return cfg
}

// Validate checks the keys the HTTP server cannot run without.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("MTLGEN_API_KEY is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	return nil
}

// StyleProfile is the default profile, overlaid with STYLE_PROFILE when set,
// with the steps-header policy from SHADE_STEPS_HEADER.
func (c Config) StyleProfile() (style.Profile, error) {
	p := style.DefaultProfile()
	if c.StyleProfilePath != "" {
		var err error
		p, err = style.LoadProfile(c.StyleProfilePath, p)
		if err != nil {
			return style.DefaultProfile(), err
		}
	}
	if c.ShadeStepsHeader != nil {
		p = p.WithShadeStepsHeader(*c.ShadeStepsHeader)
	}
	return p, nil
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

// envBoolPtr returns nil unless key holds a parseable boolean.
func envBoolPtr(key string) *bool {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
