package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New(), t.TempDir())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr())
	}
	if cfg.Server.IsRelease() {
		t.Fatalf("default mode should be debug")
	}
	if cfg.Server.ShutdownTimeout() != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout %s", cfg.Server.ShutdownTimeout())
	}
	if cfg.Jobs.BatchSize != 200 || cfg.Jobs.SyncLookback() != time.Hour {
		t.Fatalf("unexpected jobs config %+v", cfg.Jobs)
	}
	if cfg.Queue.Queues["critical"] != 5 {
		t.Fatalf("unexpected queue weights %+v", cfg.Queue.Queues)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := []byte("server:\n  port: \"9090\"\n  mode: release\njobs:\n  batch_size: 50\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("JOBS_BATCH_SIZE", "75")
	t.Setenv("WEBHOOK_SECRET", "from-env")

	cfg, err := LoadFrom(viper.New(), dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != "9090" || !cfg.Server.IsRelease() {
		t.Fatalf("file values not applied: %+v", cfg.Server)
	}
	if cfg.Jobs.BatchSize != 75 {
		t.Fatalf("env should override file, got %d", cfg.Jobs.BatchSize)
	}
	if cfg.Webhook.Secret != "from-env" {
		t.Fatalf("env should override default, got %q", cfg.Webhook.Secret)
	}
}

func TestLoadFromRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [\n"), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if _, err := LoadFrom(viper.New(), dir); err == nil {
		t.Fatalf("broken yaml should fail")
	}
}

func TestLogConfigToLoggerOptions(t *testing.T) {
	opts := LogConfig{Level: "warn", Stdout: true, Filename: "x.log"}.ToLoggerOptions("worker")
	if opts.Service != "worker" || opts.Level != "warn" || !opts.Stdout || opts.Filename != "x.log" {
		t.Fatalf("unexpected logger options %+v", opts)
	}
}
