package config

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// retryDelay is the pause between connection attempts.
var retryDelay = 5 * time.Second

// LoadEnv copies the first .env file found into the process environment,
// without overriding variables that are already set. It returns the path
// loaded, or "" when there is none.
func LoadEnv(logger *slog.Logger) (string, error) {
	possiblePaths := []string{
		os.Getenv("MGNREGA_ENV"), // Environment-specified path
		".env",
		"../.env",
		"../../.env",
	}

	var loadedFile string
	for _, path := range possiblePaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			loadedFile = path
			break
		}
	}
	if loadedFile == "" {
		return "", nil
	}

	file, err := os.Open(loadedFile)
	if err != nil {
		return "", fmt.Errorf("error opening .env file: %w", err)
	}
	defer file.Close()

	set := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		// Remove quotes if present
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		os.Setenv(key, value)
		set++
	}
	if err := scanner.Err(); err != nil {
		return loadedFile, fmt.Errorf("error reading %s: %w", loadedFile, err)
	}
	if logger != nil {
		logger.Info("loaded environment file", "path", loadedFile, "variables", set)
	}
	return loadedFile, nil
}

// InitDBWithRetry opens the record database, retrying failed attempts.
func InitDBWithRetry(ctx context.Context, cfg DBConfig, maxRetries int, logger *slog.Logger) (*sqlx.DB, error) {
	var err error
	for i := 0; i < maxRetries; i++ {
		var db *sqlx.DB
		db, err = InitDB(ctx, cfg)
		if err == nil {
			logger.Info("connected to database", "driver", cfg.Driver, "attempt", i+1)
			return db, nil
		}
		logger.Warn("database connection failed", "attempt", i+1, "max_attempts", maxRetries, "error", err)
		if i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", cfg.Driver, maxRetries, err)
}

// InitDB opens and pings the record database.
func InitDB(ctx context.Context, cfg DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite3" {
		// SQLite serialises writers; one connection avoids "database is locked".
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.PoolMax)
		db.SetMaxIdleConns(max(cfg.PoolMin, 1))
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

// ConnectMongoWithRetry connects to MongoDB, retrying failed attempts.
func ConnectMongoWithRetry(ctx context.Context, cfg MongoConfig, maxRetries int, logger *slog.Logger) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("MONGO_URI is not set")
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		var client *mongo.Client
		client, err = connectMongo(ctx, cfg.URI)
		if err == nil {
			logger.Info("connected to MongoDB", "database", cfg.DBName)
			return client, nil
		}
		logger.Warn("MongoDB connection failed", "attempt", i+1, "max_attempts", maxRetries, "error", err)
		if i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", maxRetries, err)
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		SetSocketTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetMaxConnIdleTime(60 * time.Minute).
		SetWriteConcern(writeconcern.Majority()).
		SetReadConcern(readconcern.Majority()).
		SetReadPreference(readpref.Primary())

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}
	return client, nil
}

// CheckDBHealth pings the record database.
func CheckDBHealth(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// CheckMongoHealth pings MongoDB.
func CheckMongoHealth(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("MongoDB health check failed: %w", err)
	}
	return nil
}

// CloseDB releases both database connections; either may be nil.
func CloseDB(db *sqlx.DB, client *mongo.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}
	if client != nil {
		if err := client.Disconnect(ctx); err != nil {
			logger.Error("error closing MongoDB connection", "error", err)
		}
	}
}
