package config

import (
	"os"
	"testing"
)

func TestLoadConfigExpandsEnvTokens(t *testing.T) {
	t.Setenv("CCRELAY_TEST_KEY", "sk-secret-value")

	path := writeConfig(t, `
port: 8787
providers:
  official:
    baseUrl: "https://api.anthropic.com"
    mode: passthrough
    providerType: anthropic
  glm:
    baseUrl: "https://open.bigmodel.cn/api/paas/v4"
    mode: inject
    providerType: openai
    apiKey: "${CCRELAY_TEST_KEY}"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Providers["glm"].APIKey; got != "sk-secret-value" {
		t.Errorf("APIKey = %q, want expanded env value", got)
	}
}

func TestLoadConfigUnsetEnvTokenExpandsEmpty(t *testing.T) {
	os.Unsetenv("CCRELAY_TEST_UNSET")
	path := writeConfig(t, `
port: 8787
providers:
  official:
    baseUrl: "https://api.anthropic.com"
    mode: passthrough
    providerType: anthropic
  glm:
    baseUrl: "https://x"
    mode: inject
    providerType: openai
    apiKey: "prefix-${CCRELAY_TEST_UNSET}-suffix"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got, want := cfg.Providers["glm"].APIKey, "prefix--suffix"; got != want {
		t.Errorf("APIKey = %q, want %q", got, want)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/ccrelay.yaml"); err == nil {
		t.Fatal("expected an error for a missing configuration file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfig(t, "not: [valid: yaml")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestLoadConfigAppliesDefaultsThenValidates(t *testing.T) {
	path := writeConfig(t, minimalConfigYAML)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Concurrency.MaxWorkers != DefaultConcurrencyMaxWorkers {
		t.Errorf("expected defaults to be applied before validation succeeded")
	}
}

func TestLoadConfigRejectsInvalidAfterExpansion(t *testing.T) {
	path := writeConfig(t, `
port: 70000
providers:
  official:
    baseUrl: "https://api.anthropic.com"
    mode: passthrough
    providerType: anthropic
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for out-of-range port")
	}
}
