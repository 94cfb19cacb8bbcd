package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"telegram": {"token": "123:abc", "poll_timeout": "15s", "rate_per_sec": 5},
		"logging": {"level": "debug", "console": true},
		"storage": {"path": "data/bot.db"},
		"scheduler": {"poll_interval": "2s", "batch_size": 4},
		"images": {"folder": "data/images", "ocr_binary": "none"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.RatePerSec != 5 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Scheduler.BatchSize != 4 {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", strings.TrimSpace(`
telegram:
  token: "123:abc"
logging:
  level: info
  console: true
storage:
  path: data/bot.db
scheduler:
  batch_size: 7
`))

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Scheduler.BatchSize != 7 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"telegram": {"token": "x", "owner": 1}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"telegram": {"token": "x"}}{"extra": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("trailing data accepted")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationField("x", " 90s "); err != nil || d != 90*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "fast"); err == nil {
		t.Fatal("garbage duration accepted")
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if d, err := ParseDurationOrDefault("x", "", 3*time.Second); err != nil || d != 3*time.Second {
		t.Fatalf("default: got %v, %v", d, err)
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"telegram": {"token": "x"}, "logging": {"level": "info", "console": true}, "storage": {"path": "a.db"}, "scheduler": {}}`)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	next := &Config{}
	next.Telegram.Token = "y"
	m.Commit(next)
	m.publish(next)

	select {
	case got := <-sub:
		if got.Telegram.Token != "y" {
			t.Fatalf("published config = %+v", got.Telegram)
		}
	case <-time.After(time.Second):
		t.Fatal("no config published")
	}
}
