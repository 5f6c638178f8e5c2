package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sig-0/p2prates/cmd/env"
	"github.com/sig-0/p2prates/storage"
	"github.com/sig-0/p2prates/storage/memory"
	"github.com/sig-0/p2prates/storage/sql"
)

var errMissingDBURL = errors.New("missing " + env.Prefix + env.DBURLSuffix)

// LoadEnv loads the .env file, if any
func LoadEnv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("unable to load .env file")
	}
}

// MemoryStorage creates a new in-memory rate log
func MemoryStorage() (storage.Storage, func()) {
	return memory.NewStorage(), func() {}
}

// SQLStorage connects to the PostgreSQL rate log at P2PRATES_DB_URL.
// The returned function closes the connection pool
func SQLStorage(ctx context.Context, logger *slog.Logger) (storage.Storage, func(), error) {
	dsn := os.Getenv(env.Prefix + env.DBURLSuffix)
	if dsn == "" {
		return nil, nil, errMissingDBURL
	}

	// Open the DB connection pool
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open DB connection: %w", err)
	}

	// Check DB reachability
	pingCtx, cancelPing := context.WithTimeout(ctx, time.Second*5)
	defer cancelPing()

	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()

		return nil, nil, fmt.Errorf("unable to reach DB (ping): %w", err)
	}

	logger.Info("DB ping success")

	return sql.NewStorage(pool), pool.Close, nil
}
