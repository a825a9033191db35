package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirenotify-server/internal/config"
)

func TestRunStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "app.db")
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := New(ctx, &cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- application.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("app did not stop after cancel")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "migrate.db")

	for i := 0; i < 2; i++ {
		if err := Migrate(context.Background(), path, &logger); err != nil {
			t.Fatalf("migrate #%d: %v", i, err)
		}
	}
}
