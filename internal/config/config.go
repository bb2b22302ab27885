package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	RedisURL             string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret     string
	AdminEmail    string
	AdminPassword string

	// PublicBaseURL prefixes links placed in outgoing e-mail (unsubscribe, preferences).
	PublicBaseURL string

	Jobs        JobsConfig
	Translation TranslationConfig
	Reminder    ReminderConfig
	Mail        MailConfig
	Scripture   ScriptureConfig
}

type JobsConfig struct {
	PollInterval time.Duration
	BatchSize    int
	StaleAfter   time.Duration
	CacheTTL     time.Duration
}

type TranslationConfig struct {
	PollInterval time.Duration
	BatchSize    int
	APIURL       string
	APIKey       string
	// CleanupSchedule is a cron expression (UTC) for the finished-row sweep.
	CleanupSchedule string
	Retention       time.Duration
}

type ReminderConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

type MailConfig struct {
	APIURL string
	APIKey string
	From   string
}

type ScriptureConfig struct {
	APIURL string
	// Versions maps a language code to the bible version requested for it, e.g. "en=web,pt=almeida".
	Versions map[string]string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		RedisURL:             getenv("REDIS_URL", ""),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		JWTSecret:            getenv("JWT_SECRET", ""),
		AdminEmail:           strings.ToLower(getenv("ADMIN_EMAIL", "")),
		AdminPassword:        getenv("ADMIN_PASSWORD", ""),
		PublicBaseURL:        strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		Translation: TranslationConfig{
			APIURL:          getenv("TRANSLATION_API_URL", "https://api-free.deepl.com/v2/translate"),
			APIKey:          getenv("TRANSLATION_API_KEY", ""),
			CleanupSchedule: getenv("TRANSLATION_CLEANUP_SCHEDULE", "0 3 * * *"),
		},
		Mail: MailConfig{
			APIURL: getenv("MAIL_API_URL", ""),
			APIKey: getenv("MAIL_API_KEY", ""),
			From:   getenv("MAIL_FROM", ""),
		},
		Scripture: ScriptureConfig{
			APIURL:   getenv("SCRIPTURE_API_URL", "https://bible-api.com"),
			Versions: parsePairs(getenv("SCRIPTURE_VERSIONS", "en=web,pt=almeida,ro=rccv,zh=cuv,cs=bkr")),
		},
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL must not be empty")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET must not be empty")
	}

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	if cfg.Jobs.PollInterval, err = getenvDuration("JOBS_POLL_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Jobs.BatchSize, err = getenvInt("JOBS_BATCH_SIZE", 10); err != nil {
		return Config{}, err
	}
	if cfg.Jobs.StaleAfter, err = getenvDuration("JOBS_STALE_AFTER", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Jobs.CacheTTL, err = getenvDuration("JOBS_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Translation.PollInterval, err = getenvDuration("TRANSLATION_POLL_INTERVAL", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Translation.BatchSize, err = getenvInt("TRANSLATION_BATCH_SIZE", 1); err != nil {
		return Config{}, err
	}
	if cfg.Translation.Retention, err = getenvDuration("TRANSLATION_RETENTION", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Reminder.PollInterval, err = getenvDuration("REMINDER_POLL_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Reminder.BatchSize, err = getenvInt("REMINDER_BATCH_SIZE", 100); err != nil {
		return Config{}, err
	}

	if cfg.Jobs.BatchSize < 1 || cfg.Translation.BatchSize < 1 || cfg.Reminder.BatchSize < 1 {
		return Config{}, errors.New("batch sizes must be > 0")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive", key)
	}
	return d, nil
}

// parsePairs reads "k1=v1,k2=v2" into a map, skipping malformed entries.
func parsePairs(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}
