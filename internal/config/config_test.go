package config

import (
	"os"
	"path/filepath"
	"testing"

	xerrors "taskdesk/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskdesk.yaml", `
log:
  level: debug
  outputs: ["stdout", "logs/app.log"]
  audit:
    enabled: true
console:
  script: scripts/demo.txt
notify:
  writer: false
  redis:
    enabled: true
    address: 127.0.0.1:6379
metrics:
  address: ":9102"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Log.Outputs[0] != "stdout" || cfg.Log.Outputs[1] != filepath.Join(dir, "logs", "app.log") {
		t.Fatalf("unexpected outputs: %v", cfg.Log.Outputs)
	}
	if cfg.Log.Audit.Path != filepath.Join(dir, "logs", "audit.log") {
		t.Fatalf("unexpected audit path: %s", cfg.Log.Audit.Path)
	}
	if cfg.Console.Mode != ModeCommands || cfg.Console.Prompt != "> " {
		t.Fatalf("unexpected console config: %+v", cfg.Console)
	}
	if cfg.Console.Script != filepath.Join(dir, "scripts", "demo.txt") {
		t.Fatalf("unexpected script path: %s", cfg.Console.Script)
	}
	if cfg.Notify.WriterEnabled() {
		t.Fatalf("expected writer sink to be disabled")
	}
	if cfg.Notify.Redis.Key != "taskdesk:notices" || cfg.Notify.RabbitMQ.Queue != "taskdesk.notices" {
		t.Fatalf("unexpected notify defaults: %+v", cfg.Notify)
	}
	if cfg.Metrics.Address != ":9102" {
		t.Fatalf("unexpected metrics address: %s", cfg.Metrics.Address)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskdesk.json", `{"console": {"mode": "GUIDED"}, "log": {"format": "json"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Console.Mode != ModeGuided {
		t.Fatalf("expected guided mode, got %s", cfg.Console.Mode)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("unexpected format: %s", cfg.Log.Format)
	}
	if !cfg.Notify.WriterEnabled() {
		t.Fatalf("writer sink should default to enabled")
	}
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"mode.yaml":     "console:\n  mode: batch\n",
		"redis.yaml":    "notify:\n  redis:\n    enabled: true\n",
		"rabbitmq.yaml": "notify:\n  rabbitmq:\n    enabled: true\n",
		"broken.yaml":   "console: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, dir, name, content))
			if xerrors.CodeOf(err) != xerrors.CodeConfigFailure {
				t.Fatalf("expected config failure, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if xerrors.CodeOf(err) != xerrors.CodeConfigFailure {
		t.Fatalf("expected config failure, got %v", err)
	}
}

func TestDefaultAndResolve(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Console.Mode != ModeCommands || cfg.Log.Outputs[0] != "stderr" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	t.Setenv(EnvConfigPath, "/etc/taskdesk.yaml")
	if got := Resolve(" custom.yaml "); got != "custom.yaml" {
		t.Fatalf("flag should win, got %q", got)
	}
	if got := Resolve(""); got != "/etc/taskdesk.yaml" {
		t.Fatalf("env should be used, got %q", got)
	}
}
