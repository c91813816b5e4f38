package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FromDir(t *testing.T) {
	t.Setenv(EnvPort, "")
	dir := t.TempDir()
	want := writeFile(t, dir, FileName, "version: 1\ntimeout: 10m\nport: 8081\nallow: [echo, ls]\n")

	res, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
	if res.Config.Version != 1 {
		t.Errorf("Config.Version = %d, want 1", res.Config.Version)
	}
	if got := res.Config.Timeout(); got != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", got)
	}
	if got := res.Config.Port(); got != 8081 {
		t.Errorf("Port() = %d, want 8081", got)
	}
	if len(res.Config.Allow) != 2 {
		t.Errorf("Allow = %v, want 2 entries", res.Config.Allow)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	t.Setenv(EnvPort, "")
	path := writeFile(t, t.TempDir(), "gw.yaml", "max_concurrent: 2\nmax_queue: 0\nhistory:\n  capacity: 5\n  keep: 10\n")

	res, err := Load(t.TempDir(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.MaxConcurrent(); got != 2 {
		t.Errorf("MaxConcurrent() = %d, want 2", got)
	}
	if got := res.Config.MaxQueue(); got != 0 {
		t.Errorf("MaxQueue() = %d, want 0", got)
	}
	if got := res.Config.HistoryCapacity(); got != 5 {
		t.Errorf("HistoryCapacity() = %d, want 5", got)
	}
	if got := res.Config.HistoryKeep(); got != 10 {
		t.Errorf("HistoryKeep() = %d, want 10", got)
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvShell, "")
	dir := t.TempDir()

	res, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != "" {
		t.Errorf("Path = %q, want empty", res.Path)
	}
	cfg := res.Config
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.Shell() != DefaultShell {
		t.Errorf("Shell() = %q, want %q", cfg.Shell(), DefaultShell)
	}
	if cfg.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", cfg.Timeout(), DefaultTimeout)
	}
	if cfg.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d, want %d", cfg.MaxOutputBytes(), DefaultMaxOutput)
	}
	if cfg.MaxQueue() != DefaultMaxQueue {
		t.Errorf("MaxQueue() = %d, want %d", cfg.MaxQueue(), DefaultMaxQueue)
	}
	if cfg.Preference() != DefaultOutputPreference {
		t.Errorf("Preference() = %q, want %q", cfg.Preference(), DefaultOutputPreference)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "port: 8081\nshell: /bin/bash\n")
	t.Setenv(EnvPort, "9999")
	t.Setenv(EnvShell, "/bin/dash")
	t.Setenv(EnvLogLevel, "debug")

	res, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.Port(); got != 9999 {
		t.Errorf("Port() = %d, want 9999", got)
	}
	if got := res.Config.Addr(); got != ":9999" {
		t.Errorf("Addr() = %q, want :9999", got)
	}
	if got := res.Config.Shell(); got != "/bin/dash" {
		t.Errorf("Shell() = %q, want /bin/dash", got)
	}
	if got := res.Config.LogLevel(); got != "debug" {
		t.Errorf("LogLevel() = %q, want debug", got)
	}
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv(EnvPort, "http")
	if _, err := Load(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvPort, "")
	tests := map[string]string{
		"preference": "output_preference: stderr_first\n",
		"format":     "log:\n  format: xml\n",
		"timeout":    "timeout: soon\n",
		"port":       "port: 70000\n",
		"yaml":       "port: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, FileName, body)
			if _, err := Load(dir, ""); err == nil {
				t.Errorf("Load(%q) = nil error, want error", body)
			}
		})
	}
}

func TestTimeout_Disabled(t *testing.T) {
	cfg := &Config{RawTimeout: "0"}
	if got := cfg.Timeout(); got != 0 {
		t.Errorf("Timeout() = %v, want 0", got)
	}
}
