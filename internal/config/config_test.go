package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/locsync/internal/errors"
	"github.com/vango-dev/locsync/pkg/location"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Address() != "localhost:8080" {
		t.Errorf("Address() = %q, want localhost:8080", cfg.Address())
	}
	if cfg.HistoryMode() != location.ModePush {
		t.Errorf("HistoryMode() = %v, want push", cfg.HistoryMode())
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Metrics)
	}
	if cfg.Journal.Backend != JournalMemory {
		t.Errorf("Journal.Backend = %q, want memory", cfg.Journal.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, "L100") {
		t.Errorf("Load() error = %v, want L100", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `{
  "server": {"host": "0.0.0.0", "port": 9000, "allowedOrigins": ["https://a.example"]},
  "session": {"readTimeout": "2m", "maxSessions": 50},
  "history": "replace",
  "metrics": {"enabled": false},
  "tracing": {"enabled": true, "includeUrl": false},
  "journal": {"backend": "s3", "bucket": "b"},
  "log": {"level": "debug", "format": "json"}
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Address() != "0.0.0.0:9000" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	read, write, _, heartbeat := cfg.Session.Durations()
	if read != 2*time.Minute || write != 10*time.Second || heartbeat != 30*time.Second {
		t.Errorf("Durations() = %v %v %v", read, write, heartbeat)
	}
	if cfg.Session.MaxSessions != 50 {
		t.Errorf("MaxSessions = %d, want 50", cfg.Session.MaxSessions)
	}
	if cfg.HistoryMode() != location.ModeReplace {
		t.Errorf("HistoryMode() = %v, want replace", cfg.HistoryMode())
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false from file")
	}
	if cfg.Tracing.IncludeURLs() {
		t.Error("IncludeURLs() = true, want false")
	}
	if cfg.Journal.Prefix != "locsync/journals/" {
		t.Errorf("Journal.Prefix = %q, want default s3 prefix", cfg.Journal.Prefix)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not_json", `{"server":`, "L101"},
		{"bad_duration", `{"session": {"readTimeout": "soon"}}`, "L101"},
		{"negative_duration", `{"session": {"writeTimeout": "-1s"}}`, "L102"},
		{"bad_port", `{"server": {"port": 70000}}`, "L102"},
		{"bad_history", `{"history": "sideways"}`, "L102"},
		{"unknown_journal", `{"journal": {"backend": "redis"}}`, "L400"},
		{"s3_without_bucket", `{"journal": {"backend": "s3"}}`, "L401"},
		{"bad_level", `{"log": {"level": "loud"}}`, "L102"},
		{"bad_format", `{"log": {"format": "xml"}}`, "L102"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tc.body))
			if !errors.Is(err, tc.code) {
				t.Errorf("LoadFile() error = %v, want %s", err, tc.code)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := New()
	cfg.History = "replace"
	cfg.Journal.MaxEntries = 10
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.History != "replace" || loaded.Journal.MaxEntries != 10 {
		t.Errorf("loaded = %+v", loaded)
	}

	loaded.Server.Port = 1234
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !Exists(filepath.Dir(path)) {
		t.Error("Exists() = false after Save")
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without path should fail")
	}
}

func TestSetAddress(t *testing.T) {
	cfg := New()
	if err := cfg.SetAddress(":9090"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}
	if cfg.Server.Host != "" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if err := cfg.SetAddress("nope"); !errors.Is(err, "L500") {
		t.Errorf("SetAddress(nope) error = %v, want L500", err)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
