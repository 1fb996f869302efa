package config

import (
	"errors"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{
		Providers: map[string]ProviderConfig{
			"official": {BaseURL: "https://api.anthropic.com", Mode: "passthrough", ProviderType: "anthropic"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidateAcceptsDefaultedConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsMissingOfficialProvider(t *testing.T) {
	cfg := validConfig()
	delete(cfg.Providers, "official")

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing official provider")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error is not a ValidationError: %v", err)
	}
	if !fieldErrorMentions(verr, "providers.official") {
		t.Errorf("errors %v do not mention providers.official", verr.Errors)
	}
}

func TestValidateRejectsBadProviderID(t *testing.T) {
	cfg := validConfig()
	cfg.Providers["bad id!"] = ProviderConfig{BaseURL: "https://x", Mode: "passthrough", ProviderType: "anthropic"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid provider id")
	}
}

func TestValidateRequiresAPIKeyForInjectMode(t *testing.T) {
	cfg := validConfig()
	cfg.Providers["glm"] = ProviderConfig{BaseURL: "https://x", Mode: "inject", ProviderType: "openai"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for inject provider missing apiKey")
	}
}

func TestValidateRejectsZeroMaxWorkers(t *testing.T) {
	cfg := validConfig()
	cfg.Concurrency.MaxWorkers = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for maxWorkers < 1")
	}
}

func TestValidateAllowsUnboundedQueueSize(t *testing.T) {
	cfg := validConfig()
	cfg.Concurrency.MaxQueueSize = 0

	if err := Validate(cfg); err != nil {
		t.Fatalf("MaxQueueSize=0 (unbounded) must be valid, got %v", err)
	}
}

func TestValidateErrorMessageListsAllFailures(t *testing.T) {
	cfg := &Config{}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for empty config")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error is not a ValidationError: %v", err)
	}
	if len(verr.Errors) < 2 {
		t.Errorf("expected multiple collected errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

func fieldErrorMentions(verr ValidationError, field string) bool {
	for _, e := range verr.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}
