package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/redis/go-redis/v9"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var ErrDatabaseUnreachable = errors.New("database unreachable")

// OpenDB opens a traced Postgres handle and registers pool metrics. The
// handle is returned even when the first ping fails, alongside the ping
// error, so callers that have a fallback store can keep serving and let the
// pool reconnect later.
func OpenDB(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	db, err := otelsql.Open(driverName, dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemPostgreSQL)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register db stats: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return db, fmt.Errorf("%w: %w", ErrDatabaseUnreachable, err)
	}

	return db, nil
}

// OpenRedis connects to the Redis instance backing carts, sessions and the
// fallback stores.
func OpenRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
