package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the bot reads from the environment
type Config struct {
	Env  string
	Port string

	BotToken      string
	BotUsername   string
	WebhookURL    string
	WebhookSecret string

	GeminiAPIKey      string
	GeminiModel       string
	GeminiMaxAttempts uint

	WorkerCount    int
	QueueSize      int
	ProcessTimeout time.Duration

	DatabaseURL string

	R2 R2Config

	JWTSecret         string
	AdminPasswordHash string
	CORSOrigins       []string

	Version      string
	OTLPEndpoint string
	OTLPInsecure bool
}

type R2Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

var required = []string{
	"BOT_TOKEN",
	"GEMINI_API_KEY",
}

// Load reads .env (outside production) and the process environment
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	for _, k := range required {
		if os.Getenv(k) == "" {
			return nil, fmt.Errorf("missing env var: %s", k)
		}
	}

	cfg := &Config{
		Env:               getenv("APP_ENV", "development"),
		Port:              getenv("PORT", "8000"),
		BotToken:          os.Getenv("BOT_TOKEN"),
		BotUsername:       strings.TrimPrefix(os.Getenv("BOT_USERNAME"), "@"),
		WebhookURL:        strings.TrimRight(os.Getenv("WEBHOOK_URL"), "/"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getenv("GEMINI_MODEL", "gemini-2.5-pro"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		Version:           getenv("SERVICE_VERSION", "dev"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		R2: R2Config{
			Endpoint:      os.Getenv("R2_ENDPOINT"),
			AccessKey:     os.Getenv("R2_ACCESS_KEY"),
			SecretKey:     os.Getenv("R2_SECRET_KEY"),
			Bucket:        os.Getenv("R2_BUCKET_NAME"),
			PublicBaseURL: strings.TrimRight(os.Getenv("R2_PUBLIC_BASE_URL"), "/"),
		},
	}

	var err error
	if cfg.WorkerCount, err = getInt("WORKER_COUNT", 4); err != nil {
		return nil, err
	}
	if cfg.QueueSize, err = getInt("QUEUE_SIZE", 64); err != nil {
		return nil, err
	}
	attempts, err := getInt("GEMINI_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	cfg.GeminiMaxAttempts = uint(attempts)

	if cfg.OTLPInsecure, err = getBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}

	if cfg.ProcessTimeout, err = getDuration("PROCESS_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if err := cfg.R2.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) R2Enabled() bool {
	return c.R2.Endpoint != ""
}

func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}

func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

// validate enforces all-or-nothing for the R2 settings
func (r R2Config) validate() error {
	values := map[string]string{
		"R2_ENDPOINT":        r.Endpoint,
		"R2_ACCESS_KEY":      r.AccessKey,
		"R2_SECRET_KEY":      r.SecretKey,
		"R2_BUCKET_NAME":     r.Bucket,
		"R2_PUBLIC_BASE_URL": r.PublicBaseURL,
	}

	var set, missing []string
	for k, v := range values {
		if v == "" {
			missing = append(missing, k)
		} else {
			set = append(set, k)
		}
	}
	if len(set) > 0 && len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("incomplete R2 configuration, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q must be a positive integer", key, v)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q must be true or false", key, v)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q must be a positive duration", key, v)
	}
	return d, nil
}
