package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

const minimalConfigYAML = `
port: 9090
providers:
  official:
    baseUrl: "https://api.anthropic.com"
    mode: passthrough
    providerType: anthropic
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func resetSingleton() {
	globalConfig = nil
	initOnce = *new(sync.Once)
}

func TestInitialize(t *testing.T) {
	resetSingleton()
	path := writeConfig(t, minimalConfigYAML)

	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("GetConfig returned nil after Initialize")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
}

func TestInitializeOnlyRunsOnce(t *testing.T) {
	resetSingleton()
	path := writeConfig(t, minimalConfigYAML)

	if err := Initialize(path); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	if err := Initialize("/nonexistent/path.yaml"); err != nil {
		t.Fatalf("second Initialize should be a no-op, got error: %v", err)
	}
	if GetConfig().Port != 9090 {
		t.Error("second Initialize call must not change the loaded config")
	}
}

func TestGetConfigBeforeInitialize(t *testing.T) {
	resetSingleton()
	if cfg := GetConfig(); cfg != nil {
		t.Errorf("GetConfig() = %+v, want nil before Initialize", cfg)
	}
}

func TestMustGetConfigPanics(t *testing.T) {
	resetSingleton()
	defer func() {
		if recover() == nil {
			t.Error("MustGetConfig did not panic with uninitialized config")
		}
	}()
	MustGetConfig()
}

func TestReloadConfig(t *testing.T) {
	resetSingleton()
	path := writeConfig(t, minimalConfigYAML)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := os.WriteFile(path, []byte(`
port: 9999
providers:
  official:
    baseUrl: "https://api.anthropic.com"
    mode: passthrough
    providerType: anthropic
`), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig: %v", err)
	}
	if GetConfig().Port != 9999 {
		t.Errorf("Port after reload = %d, want 9999", GetConfig().Port)
	}
}

func TestReloadConfigKeepsOldOnFailure(t *testing.T) {
	resetSingleton()
	path := writeConfig(t, minimalConfigYAML)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := ReloadConfig("/nonexistent/path.yaml"); err == nil {
		t.Fatal("expected ReloadConfig to fail for a missing file")
	}
	if GetConfig().Port != 9090 {
		t.Error("failed reload must leave the existing config in place")
	}
}
