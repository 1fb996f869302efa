// Package config provides configuration management for ccrelay.
//
// This package loads, validates, and manages the RouterConfig shape: the
// listen address, the provider table, path-based routing rules, the
// concurrency tuning for the default queue, any additional route queues,
// and the logger driver's settings.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")
//
// ${VAR} tokens anywhere in a string field are expanded from the process
// environment before validation, so a provider's apiKey can reference a
// secret without storing it in the file:
//
//	providers:
//	  openai:
//	    baseUrl: "https://api.openai.com/v1"
//	    apiKey: "${OPENAI_API_KEY}"
//
// # Configuration Precedence
//
//  1. Values from the YAML file
//  2. ${VAR} environment expansion
//  3. Default values (defined in defaults.go)
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// Validation errors include field paths and are collected together:
//
//	configuration validation failed with 2 errors:
//	  - providers.official: the "official" provider is required
//	  - concurrency.maxWorkers: must be >= 1
//
// # Example Configuration
//
//	port: 8787
//	host: 127.0.0.1
//	defaultProvider: official
//	providers:
//	  official:
//	    baseUrl: "https://api.anthropic.com"
//	    mode: passthrough
//	    providerType: anthropic
//	  glm:
//	    baseUrl: "https://open.bigmodel.cn/api/paas/v4"
//	    mode: inject
//	    providerType: openai
//	    apiKey: "${GLM_API_KEY}"
//	    modelMap:
//	      - pattern: "claude-*"
//	        model: "glm-4"
//	routing:
//	  proxy: ["/v1/*"]
//	concurrency:
//	  enabled: true
//	  maxWorkers: 4
//	logging:
//	  enabled: true
//	  database: ".ccrelay/ccrelay.db"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton uses a read-write
// lock so concurrent reads never block on a reload.
//
// # Hot Reload
//
// Watcher (watch.go) watches the config file's directory with fsnotify and
// calls ReloadConfig, debounced, on every change:
//
//	w, err := config.NewWatcher(path, func(cfg *config.Config) { ... }, logger)
//	go w.Run()
//	defer w.Stop()
package config
