// Package config loads the service configuration from the environment and
// opens the connections it describes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DBConfig selects and addresses the record database.
type DBConfig struct {
	Driver   string `validate:"oneof=postgres sqlite3"`
	Host     string `validate:"required_if=Driver postgres"`
	Port     string `validate:"required_if=Driver postgres"`
	Name     string `validate:"required_if=Driver postgres"`
	User     string `validate:"required_if=Driver postgres"`
	Password string `validate:"required_if=Driver postgres"`
	SSLMode  string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	Path     string `validate:"required_if=Driver sqlite3"`
	PoolMax  int    `validate:"gte=1"`
	PoolMin  int    `validate:"gte=0,ltefield=PoolMax"`
}

// DSN is the driver-specific connection string.
func (d DBConfig) DSN() string {
	if d.Driver == "sqlite3" {
		return d.Path
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslmode)
}

type MongoConfig struct {
	URI    string `validate:"omitempty,startswith=mongodb"`
	DBName string `validate:"required_with=URI"`
}

// RedisConfig addresses the cache. URL wins over Host/Port; with neither
// the in-process cache is used.
type RedisConfig struct {
	URL      string
	Host     string
	Port     string `validate:"omitempty,numeric"`
	Password string
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return r.URL != "" || r.Host != "" }

type DataGovConfig struct {
	BaseURL           string        `validate:"required,url"`
	ResourceID        string        `validate:"required"`
	APIKey            string        `validate:"required"`
	TargetState       string        `validate:"required"`
	Timeout           time.Duration `validate:"gt=0"`
	RequestsPerSecond float64       `validate:"gte=0"`
}

type SyncConfig struct {
	JobEnabled bool
	JobCron    string `validate:"required"`
}

type HTTPConfig struct {
	Port            string        `validate:"required,numeric"`
	CORSOrigins     []string      `validate:"min=1,dive,required"`
	RateLimitWindow time.Duration `validate:"gt=0"`
	RateLimitMax    int           `validate:"gt=0"`
	AdminToken      string
	SiteURL         string `validate:"required,url"`
}

// Config is the complete service configuration.
type Config struct {
	Env       string `validate:"oneof=development production test"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`

	DB      DBConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	DataGov DataGovConfig
	Sync    SyncConfig
	HTTP    HTTPConfig
	Scoring calc.Config
}

// Development reports whether internals may be shown to clients.
func (c Config) Development() bool { return c.Env == "development" }

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		Env:       strings.ToLower(getEnvWithDefault("APP_ENV", "development")),
		LogLevel:  strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnvWithDefault("LOG_FORMAT", "text")),
		DB:        loadDB(),
		Mongo: MongoConfig{
			URI:    os.Getenv("MONGO_URI"),
			DBName: getEnvWithDefault("MONGO_DB_NAME", "mgnrega"),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnvWithDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		DataGov: DataGovConfig{
			BaseURL:           getEnvWithDefault("DATA_GOV_BASE_URL", "https://api.data.gov.in/resource"),
			ResourceID:        getEnvWithDefault("DATA_GOV_RESOURCE_ID", "ee03643a-ee4c-48c2-ac30-9f2ff26ab722"),
			APIKey:            os.Getenv("DATA_GOV_API_KEY"),
			TargetState:       getEnvWithDefault("TARGET_STATE", "UTTAR PRADESH"),
			Timeout:           getEnvAsDuration("DATA_GOV_TIMEOUT", 30*time.Second),
			RequestsPerSecond: getEnvAsFloat("DATA_GOV_RPS", 0.5),
		},
		Sync: SyncConfig{
			JobEnabled: getEnvAsBool("SYNC_JOB_ENABLED", true),
			JobCron:    getEnvWithDefault("SYNC_JOB_CRON", "0 2 * * *"),
		},
		HTTP: HTTPConfig{
			Port:            getEnvWithDefault("PORT", "5000"),
			CORSOrigins:     splitList(getEnvWithDefault("CORS_ORIGIN", "http://localhost:3000")),
			RateLimitWindow: time.Duration(getEnvAsInt("RATE_LIMIT_WINDOW_MS", 15*60*1000)) * time.Millisecond,
			RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
			AdminToken:      os.Getenv("ADMIN_TOKEN"),
			SiteURL:         strings.TrimRight(getEnvWithDefault("SITE_URL", "http://localhost:3000"), "/"),
		},
		Scoring: loadScoring(),
	}
	return cfg, cfg.Validate()
}

// LoadDB reads only the database settings, for tools that need nothing
// else.
func LoadDB() (DBConfig, error) {
	db := loadDB()
	if err := validate.Struct(db); err != nil {
		return db, fmt.Errorf("invalid database configuration: %w", err)
	}
	return db, nil
}

func loadDB() DBConfig {
	return DBConfig{
		Driver:   getEnvWithDefault("DB_DRIVER", "postgres"),
		Host:     getEnvWithDefault("DB_HOST", "localhost"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		Name:     getEnvWithDefault("DB_NAME", "mgnrega_db"),
		User:     getEnvWithDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		SSLMode:  os.Getenv("DB_SSL_MODE"),
		Path:     getEnvWithDefault("DB_PATH", "mgnrega.db"),
		PoolMax:  getEnvAsInt("DB_POOL_MAX", 10),
		PoolMin:  getEnvAsInt("DB_POOL_MIN", 2),
	}
}

func loadScoring() calc.Config {
	c := calc.DefaultConfig()
	t := &c.Thresholds
	t.EmploymentDays.Good = getEnvAsFloat("SCORE_EMPLOYMENT_DAYS_GOOD", t.EmploymentDays.Good)
	t.EmploymentDays.Average = getEnvAsFloat("SCORE_EMPLOYMENT_DAYS_AVERAGE", t.EmploymentDays.Average)
	t.WageRate.Good = getEnvAsFloat("SCORE_WAGE_RATE_GOOD", t.WageRate.Good)
	t.WageRate.Average = getEnvAsFloat("SCORE_WAGE_RATE_AVERAGE", t.WageRate.Average)
	t.PaymentTimeliness.Good = getEnvAsFloat("SCORE_PAYMENT_TIMELINESS_GOOD", t.PaymentTimeliness.Good)
	t.PaymentTimeliness.Average = getEnvAsFloat("SCORE_PAYMENT_TIMELINESS_AVERAGE", t.PaymentTimeliness.Average)
	t.WorkCompletion.Good = getEnvAsFloat("SCORE_WORK_COMPLETION_GOOD", t.WorkCompletion.Good)
	t.WorkCompletion.Average = getEnvAsFloat("SCORE_WORK_COMPLETION_AVERAGE", t.WorkCompletion.Average)

	w := &c.Weights
	w.Employment = getEnvAsFloat("SCORE_WEIGHT_EMPLOYMENT", w.Employment)
	w.WageRate = getEnvAsFloat("SCORE_WEIGHT_WAGE_RATE", w.WageRate)
	w.PaymentTimeliness = getEnvAsFloat("SCORE_WEIGHT_PAYMENT_TIMELINESS", w.PaymentTimeliness)
	w.WorkCompletion = getEnvAsFloat("SCORE_WEIGHT_WORK_COMPLETION", w.WorkCompletion)
	w.WomenParticipation = getEnvAsFloat("SCORE_WEIGHT_WOMEN_PARTICIPATION", w.WomenParticipation)
	return c
}

// Validate checks every section, including the scoring weights.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Helper functions
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
