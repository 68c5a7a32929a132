package repositories

import (
	"context"
	"database/sql"
	"delivery-reschedule-service/internal/config"
	"delivery-reschedule-service/internal/platform/db"
	"delivery-reschedule-service/internal/ports"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backend is an opened record store together with the operations the
// binaries need around it.
type Backend struct {
	ports.RecordStore

	// Driver is the configured store driver name.
	Driver string

	seed  func(ctx context.Context, seedPath string) error
	ping  func(ctx context.Context) error
	close func() error
}

// Seed loads the seed file into the store.
func (b *Backend) Seed(ctx context.Context, seedPath string) error {
	return b.seed(ctx, seedPath)
}

// Ping reports whether the backing service is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open builds the record store selected by cfg.Driver. SQL backends get
// their schema created on open.
func Open(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	switch cfg.Driver {
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return openSQL(ctx, cfg.Driver, conn, DialectSQLite)

	case "postgres":
		conn, err := db.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return openSQL(ctx, cfg.Driver, conn, DialectPostgres)

	case "file":
		store := NewJSONFileStore(cfg.DataPath)
		return &Backend{
			RecordStore: store,
			Driver:      cfg.Driver,
			seed:        store.Seed,
		}, nil

	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open store: parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("open store: ping redis: %w", err)
		}

		store := NewRedisStore(client, cfg.RedisKey)
		return &Backend{
			RecordStore: store,
			Driver:      cfg.Driver,
			seed:        store.Seed,
			ping:        func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close:       client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("open store: unknown driver %q", cfg.Driver)
	}
}

func openSQL(ctx context.Context, driver string, conn *sql.DB, dialect Dialect) (*Backend, error) {
	if err := InitSchema(ctx, conn, dialect); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Backend{
		RecordStore: NewSQLRecordStore(conn, dialect),
		Driver:      driver,
		seed: func(ctx context.Context, seedPath string) error {
			return SeedFromJSON(ctx, conn, dialect, seedPath)
		},
		ping:  conn.PingContext,
		close: conn.Close,
	}, nil
}
