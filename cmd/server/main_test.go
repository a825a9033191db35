package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadConfigReportsDefaultFile(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, resolved, err := loadConfig(flags{configPath: path}, &logger)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if cfg.Addr == "" {
		t.Fatalf("expected defaults to be applied: %+v", cfg)
	}
	if !strings.Contains(buf.String(), "created default config") {
		t.Fatalf("expected default config creation to be logged, got %q", buf.String())
	}
}
