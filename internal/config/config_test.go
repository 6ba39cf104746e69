package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  port: "9090"
log:
  level: debug
  format: json
question_store:
  base_url: http://questions:8081
  timeout: 3s
  cache_ttl: 15s
quiz:
  submission_grace: 1m
submissions:
  answer_format: msgpack
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.QuestionStore.BaseURL != "http://questions:8081" {
		t.Fatalf("unexpected base url %q", cfg.QuestionStore.BaseURL)
	}
	if got := Duration(cfg.QuestionStore.Timeout, time.Second); got != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", got)
	}
	if cfg.Submissions.AnswerFormat != "msgpack" {
		t.Fatalf("unexpected answer format %q", cfg.Submissions.AnswerFormat)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDurationFallback(t *testing.T) {
	if got := Duration("", 5*time.Second); got != 5*time.Second {
		t.Fatalf("empty: got %s", got)
	}
	if got := Duration("soon", 5*time.Second); got != 5*time.Second {
		t.Fatalf("malformed: got %s", got)
	}
}

func TestInitLoggerAndRequestID(t *testing.T) {
	InitLogger("warn", "text")
	if Logger().GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", Logger().GetLevel())
	}
	InitLogger("nonsense", "json")
	if Logger().GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info fallback, got %s", Logger().GetLevel())
	}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	entry, ok := WithContext(ctx).(*logrus.Entry)
	if !ok {
		t.Fatalf("expected entry with request id")
	}
	if entry.Data["request_id"] != "req-1" {
		t.Fatalf("unexpected request id %v", entry.Data["request_id"])
	}
}
