package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	LogLevel       string
	PageToken      string
	PageID         string
	GraphURL       string
	GraphTimeout   time.Duration
	NatsURL        string
	NatsToken      string
	APIToken       string
	AllowedOrigins []string
}

func Load() Config {
	return Config{
		Port:           envInt("PAGEKEEPER_PORT", 8760),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		PageToken:      envStr("FACEBOOK_PAGE_ACCESS_TOKEN", ""),
		PageID:         envStr("FACEBOOK_PAGE_ID", ""),
		GraphURL:       envStr("GRAPH_API_URL", "https://graph.facebook.com/v19.0"),
		GraphTimeout:   time.Duration(envInt("GRAPH_TIMEOUT_SECONDS", 30)) * time.Second,
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		APIToken:       envStr("PAGEKEEPER_API_TOKEN", ""),
		AllowedOrigins: envList("CORS_ALLOWED_ORIGINS"),
	}
}

// LoadDotEnv loads the given .env files, skipping ones that don't exist.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, err
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// Validate reports every missing required setting.
func (c Config) Validate() error {
	var errs []error
	if c.PageToken == "" {
		errs = append(errs, errors.New("FACEBOOK_PAGE_ACCESS_TOKEN is required"))
	}
	if c.PageID == "" {
		errs = append(errs, errors.New("FACEBOOK_PAGE_ID is required"))
	}
	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
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

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
