package repositories

import (
	"context"
	"delivery-reschedule-service/internal/config"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StoreConfig
	}{
		{name: "sqlite", cfg: config.StoreConfig{Driver: "sqlite", DBPath: filepath.Join(dir, "db", "app.db")}},
		{name: "file", cfg: config.StoreConfig{Driver: "file", DataPath: filepath.Join(dir, "data.json")}},
		{name: "redis", cfg: config.StoreConfig{Driver: "redis", RedisURL: "redis://" + mr.Addr() + "/0"}},
	}

	seedPath := writeSeed(t, testSeed)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			backend, err := Open(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer backend.Close()

			if err := backend.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if err := backend.Seed(ctx, seedPath); err != nil {
				t.Fatalf("Seed: %v", err)
			}
			if _, err := backend.FindPackage(ctx, "TRACK123"); err != nil {
				t.Fatalf("FindPackage after seed: %v", err)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.StoreConfig{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
