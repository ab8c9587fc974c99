package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds story-twister service configuration.
type Config struct {
	AppEnv   string // APP_ENV
	AppHost  string // APP_HOST
	HTTPPort string // APP_PORT or HTTP_PORT
	LogLevel string // LOG_LEVEL

	// PostgreSQL
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	// AdminToken authorizes the operator endpoints (Authorization: Bearer ...).
	AdminToken string

	// FrontendURL is the base for participant join links and QR codes.
	FrontendURL string

	Generator GeneratorConfig
	Game      GameConfig
	Scoring   ScoringConfig
}

// GeneratorConfig configures the external text generator. An empty APIKey
// means "unconfigured": twist and feedback generation use fallback pools.
type GeneratorConfig struct {
	APIURL              string
	APIKey              string
	Model               string
	TwistMaxTokens      int
	TwistTemperature    float64
	FeedbackMaxTokens   int
	FeedbackTemperature float64
}

// GameConfig holds tunable play policy. These encode game-design choices,
// not structural invariants.
type GameConfig struct {
	StoryDurationMinutes int // time budget per story
	TwistInterval        int // participant turns between auto-twists
}

// ScoringConfig holds the analysis coefficients. Loaded with defaults that
// match the historical scoring behavior; override programmatically in tests.
type ScoringConfig struct {
	CreativityFloor    int
	UniqueWordWeight   int
	TwistWeight        int
	LengthBonusWeight  int
	LengthBonusCap     int
	EngagementFloor    int
	ParticipationRate  int
	ActivityWeight     int
	ActivityCap        int
	TimeCap            int
	CollaborationFloor int
	HandoffWeight      int
	DiversityWeight    int
	CoherenceDivisor   int
	CoherenceCap       int
}

// DefaultScoring returns the standard analysis coefficients.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		CreativityFloor:    20,
		UniqueWordWeight:   2,
		TwistWeight:        15,
		LengthBonusWeight:  3,
		LengthBonusCap:     30,
		EngagementFloor:    15,
		ParticipationRate:  20,
		ActivityWeight:     4,
		ActivityCap:        40,
		TimeCap:            20,
		CollaborationFloor: 10,
		HandoffWeight:      15,
		DiversityWeight:    20,
		CoherenceDivisor:   10,
		CoherenceCap:       30,
	}
}

// Load loads config from environment (.env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	duration, _ := strconv.Atoi(getEnv("STORY_DURATION_MINUTES", "10"))
	twistEvery, _ := strconv.Atoi(getEnv("TWIST_INTERVAL_TURNS", "2"))
	twistTokens, _ := strconv.Atoi(getEnv("GENERATOR_TWIST_MAX_TOKENS", "150"))
	fbTokens, _ := strconv.Atoi(getEnv("GENERATOR_FEEDBACK_MAX_TOKENS", "400"))

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		AppHost:     getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:    firstEnv("APP_PORT", "HTTP_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		Generator: GeneratorConfig{
			APIURL:              getEnv("GENERATOR_API_URL", "https://api.groq.com/openai/v1"),
			APIKey:              getEnv("GROQ_API_KEY", ""),
			Model:               getEnv("GENERATOR_MODEL", "mistral-saba-24b"),
			TwistMaxTokens:      twistTokens,
			TwistTemperature:    0.8,
			FeedbackMaxTokens:   fbTokens,
			FeedbackTemperature: 0.7,
		},
		Game: GameConfig{
			StoryDurationMinutes: duration,
			TwistInterval:        twistEvery,
		},
		Scoring: DefaultScoring(),
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "story_twister")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

// Validate checks required fields and production safety.
func (c *Config) Validate() error {
	if c.DB.Host == "" {
		return errors.New("config: DB_HOST is required")
	}
	if c.DB.User == "" {
		return errors.New("config: DB_USER is required")
	}
	if c.DB.Database == "" {
		return errors.New("config: DB_DATABASE is required")
	}
	if c.AppEnv == "production" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	if c.AppEnv == "production" && c.AdminToken == "" {
		return errors.New("config: in production ADMIN_TOKEN is required")
	}
	if c.Game.StoryDurationMinutes <= 0 {
		return errors.New("config: STORY_DURATION_MINUTES must be positive")
	}
	if c.Game.TwistInterval <= 0 {
		return errors.New("config: TWIST_INTERVAL_TURNS must be positive")
	}
	return nil
}

// DSN returns PostgreSQL connection string for GORM.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

// DatabaseURL returns postgres URL for golang-migrate.
func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

// Addr returns listen address for HTTP server.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	keys := keysAndDef[:len(keysAndDef)-1]
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
