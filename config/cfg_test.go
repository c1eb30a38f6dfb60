package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/nicehtml/errors"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Discovery.Element != "script" || cfg.Discovery.Type != "text/nicehtml" || cfg.Discovery.SourceAttr != "src" {
		t.Errorf("unexpected discovery defaults %+v", cfg.Discovery)
	}
	if cfg.Fetch.CacheBustParam != "timestamp" {
		t.Errorf("CacheBustParam = %q", cfg.Fetch.CacheBustParam)
	}
	if cfg.Fetch.Timeout != 0 {
		t.Errorf("Timeout = %v, want none", cfg.Fetch.Timeout)
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; !strings.Contains(cfg.Fetch.UserAgent, want) {
		t.Errorf("UserAgent %q was not expanded", cfg.Fetch.UserAgent)
	}
	if cfg.Engine.HostModule != "nicehtml" || cfg.Engine.Location != "" {
		t.Errorf("unexpected engine defaults %+v", cfg.Engine)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `version: 1
fetch:
  timeout: 5s
  cache_bust_param: v
engine:
  location: engine/nicehtml.wasm
  memory_limit_pages: 256
  wasi: true
logging:
  console:
    level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Fetch.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.CacheBustParam != "v" {
		t.Errorf("CacheBustParam = %q", cfg.Fetch.CacheBustParam)
	}
	if cfg.Engine.Location != "engine/nicehtml.wasm" || cfg.Engine.MemoryLimitPages != 256 || !cfg.Engine.WASI {
		t.Errorf("unexpected engine config %+v", cfg.Engine)
	}
	// untouched values keep their defaults
	if cfg.Discovery.Type != "text/nicehtml" {
		t.Errorf("Discovery.Type = %q", cfg.Discovery.Type)
	}
	if cfg.Logging.ConsoleLogger.Level != "debug" {
		t.Errorf("console level = %q", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "version: 1\nfetch:\n  retries: 3\n"},
		{"wrong version", "version: 2\n"},
		{"empty host module", "version: 1\nengine:\n  host_module: \"\"\n"},
		{"bad log level", "version: 1\nlogging:\n  console:\n    level: loud\n"},
		{"memory limit too high", "version: 1\nengine:\n  memory_limit_pages: 70000\n"},
		{"bad timeout", "version: 1\nfetch:\n  timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfiguration(configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseConfig {
				t.Errorf("expected config phase error, got %v", err)
			}
		})
	}
}

func TestLoadConfiguration_MissingFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "absent.yaml"))
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist error, got %v", err)
	}
}

func TestPrepareAndDump(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !strings.Contains(string(data), "cache_bust_param") {
		t.Error("default configuration lacks cache_bust_param")
	}

	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	dump, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	// a dump must load back as a configuration file
	configPath := filepath.Join(t.TempDir(), "dump.yaml")
	if err := os.WriteFile(configPath, dump, 0644); err != nil {
		t.Fatal(err)
	}
	again, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("reloading dump failed: %v", err)
	}
	if again.Fetch != cfg.Fetch || again.Engine != cfg.Engine || again.Discovery != cfg.Discovery {
		t.Errorf("dump changed configuration:\n%+v\n%+v", cfg, again)
	}
}

func TestLoggingPrepare(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.log")
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: dest, Mode: "overwrite"},
	}

	log, err := conf.Prepare(false)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Info("hello file")
	log.Debug("not written")
	_ = log.Sync()

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file = %q", data)
	}
	if strings.Contains(string(data), "not written") {
		t.Error("debug entry written at normal level")
	}

	conf.FileLogger.Destination = filepath.Join(t.TempDir(), "missing", "dir", "run.log")
	if _, err := conf.Prepare(false); err == nil {
		t.Error("expected error for inaccessible destination")
	}
}

func TestLoggingCores(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.log")
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "normal"},
		FileLogger:    LoggerConfig{Level: "debug", Destination: dest, Mode: "overwrite"},
	}

	console, file, err := conf.Cores(false)
	if err != nil {
		t.Fatalf("Cores() error = %v", err)
	}
	if console.Enabled(zapcore.DebugLevel) {
		t.Error("console enabled at debug level without debug flag")
	}
	if !console.Enabled(zapcore.InfoLevel) {
		t.Error("console disabled at info level")
	}

	log := NewLogger(file)
	log.Error("Unable to load fragment")
	_ = log.Sync()

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Unable to load fragment") {
		t.Errorf("log file = %q", data)
	}
}
