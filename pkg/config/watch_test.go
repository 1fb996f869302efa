package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func validConfigYAML(defaultProvider string) string {
	return `
port: 8787
host: 127.0.0.1
defaultProvider: ` + defaultProvider + `
providers:
  official:
    baseUrl: "https://api.anthropic.com"
    mode: passthrough
    providerType: anthropic
`
}

func TestWatcherReloadsOnFileChange(t *testing.T) {
	resetSingleton()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(validConfigYAML("official")), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	var reloads atomic.Int32
	reloaded := make(chan struct{}, 4)

	w, err := NewWatcher(path, func(cfg *Config) {
		reloads.Add(1)
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	go w.Run()
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte(validConfigYAML("official")+"\n# touch\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("onReload was not called after file write")
	}

	if reloads.Load() == 0 {
		t.Error("expected at least one reload")
	}
}

func TestWatcherSkipsInvalidReload(t *testing.T) {
	resetSingleton()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(validConfigYAML("official")), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	before := GetConfig()

	called := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		called <- struct{}{}
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	go w.Run()
	time.Sleep(50 * time.Millisecond)

	// An unknown defaultProvider fails validation; GetConfig must not change
	// and onReload must not fire.
	if err := os.WriteFile(path, []byte(validConfigYAML("nonexistent")), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-called:
		t.Fatal("onReload fired for an invalid configuration")
	case <-time.After(500 * time.Millisecond):
	}

	if GetConfig() != before {
		t.Error("global config changed despite a failed reload")
	}
}
