package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envTokenPattern matches ${VAR} references inside configuration strings.
var envTokenPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadConfig loads configuration from a YAML file at the specified path. It
// expands ${VAR} tokens from the process environment, applies defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	expandEnv(reflect.ValueOf(&cfg))
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// expandEnv walks v (which must be a pointer to a struct, or a struct,
// slice, or map) and replaces ${VAR} tokens in every string field with the
// corresponding environment variable's value. Unknown variables expand to
// the empty string, matching shell-parameter-expansion-on-unset semantics.
func expandEnv(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			expandEnv(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if f.CanSet() {
				expandEnv(f)
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandEnv(v.Index(i))
		}
	case reflect.Map:
		for _, k := range v.MapKeys() {
			mv := v.MapIndex(k)
			if mv.Kind() == reflect.String {
				v.SetMapIndex(k, reflect.ValueOf(expandString(mv.String())))
				continue
			}
			// Map values are not addressable; copy, mutate, store back.
			nv := reflect.New(mv.Type()).Elem()
			nv.Set(mv)
			expandEnv(nv)
			v.SetMapIndex(k, nv)
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(expandString(v.String()))
		}
	}
}

// SaveConfig marshals cfg back to YAML and writes it to path, replacing
// the file atomically via a temp-file-then-rename so a crash mid-write
// never leaves a truncated config behind. Used by the management API's
// provider add/update/delete handlers to persist their effect.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace configuration file %q: %w", path, err)
	}
	return nil
}

func expandString(s string) string {
	return envTokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := envTokenPattern.FindStringSubmatch(tok)[1]
		return os.Getenv(name)
	})
}
