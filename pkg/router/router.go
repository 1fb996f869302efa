package router

import (
	"net/http"
	"strings"
	"sync"

	"mercator-hq/ccrelay/pkg/config"
	"mercator-hq/ccrelay/pkg/match"
)

// BlockResult is the outcome of shouldBlock for a single request path.
type BlockResult struct {
	Blocked  bool
	Response string
	Code     int
}

// ChangeFunc is invoked after a successful provider switch, from the
// goroutine that called SwitchProvider. It never fires when the id did not
// actually change.
type ChangeFunc func(providerID, providerName string)

// PersistFunc persists the newly selected provider id to durable state
// (the configuration file's well-known state key). It is the "external
// config collaborator" referenced by spec.md §4.C.
type PersistFunc func(providerID string) error

// Router holds currentProviderId and every precompiled routing artifact
// derived from a config.Config. It is safe for concurrent use.
// SwitchProvider changes currentProviderID; Reload replaces every compiled
// artifact and may reset currentProviderID.
type Router struct {
	mu sync.RWMutex

	providers         map[string]*Provider
	currentProviderID string

	proxyList        *match.GlobList
	passthroughList  *match.GlobList
	blockRules       []compiledBlock
	openaiBlockRules []compiledBlock

	persist    PersistFunc
	observerMu sync.Mutex
	observers  []ChangeFunc
}

// New builds a Router from cfg. defaultProviderID seeds currentProviderID
// (normally cfg.DefaultProvider, or a persisted state-key value on
// restart). persist may be nil, in which case switches are not durably
// recorded.
func New(cfg *config.Config, defaultProviderID string, persist PersistFunc) *Router {
	r := &Router{persist: persist}
	r.reload(cfg, defaultProviderID)
	return r
}

// Reload rebuilds every compiled artifact from cfg. currentProviderID is
// preserved if it still names an enabled provider; otherwise it falls back
// to cfg.DefaultProvider when that is enabled, else to "official".
func (r *Router) Reload(cfg *config.Config) {
	r.mu.Lock()
	keep := r.currentProviderID
	r.mu.Unlock()
	r.reload(cfg, keep)
}

func (r *Router) reload(cfg *config.Config, preferredID string) {
	providers := make(map[string]*Provider, len(cfg.Providers))
	for id, pc := range cfg.Providers {
		providers[id] = providerFromConfig(id, pc)
	}

	current := preferredID
	if _, ok := providers[current]; !ok || !providers[current].Enabled {
		if p, ok := providers[cfg.DefaultProvider]; ok && p.Enabled {
			current = cfg.DefaultProvider
		} else if _, ok := providers[config.OfficialProviderID]; ok {
			current = config.OfficialProviderID
		}
	}

	r.mu.Lock()
	r.providers = providers
	r.currentProviderID = current
	r.proxyList = match.CompileGlobList(cfg.Routing.Proxy)
	r.passthroughList = match.CompileGlobList(cfg.Routing.Passthrough)
	r.blockRules = compileBlocks(cfg.Routing.Block)
	r.openaiBlockRules = compileBlocks(cfg.Routing.OpenAIBlock)
	r.mu.Unlock()
}

// CurrentProvider returns the currently selected provider. It is never nil
// given a non-empty providers map.
func (r *Router) CurrentProvider() *Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[r.currentProviderID]
}

// GetProvider looks up a provider by id.
func (r *Router) GetProvider(id string) (*Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// ListProviders returns a snapshot of every configured provider.
func (r *Router) ListProviders() []*Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// ShouldBlock implements spec.md §4.C step 1: while the current provider is
// in "inject" mode, scan Block[] in order, then OpenAIBlock[] too when the
// provider's type is "openai".
func (r *Router) ShouldBlock(path string) BlockResult {
	path = normalizePath(path)

	r.mu.RLock()
	current := r.providers[r.currentProviderID]
	blockRules := r.blockRules
	openaiBlockRules := r.openaiBlockRules
	r.mu.RUnlock()

	if current == nil || current.Mode != "inject" {
		return BlockResult{}
	}

	if res, ok := matchBlocks(blockRules, path); ok {
		return res
	}
	if current.IsOpenAI() {
		if res, ok := matchBlocks(openaiBlockRules, path); ok {
			return res
		}
	}
	return BlockResult{}
}

func matchBlocks(rules []compiledBlock, path string) (BlockResult, bool) {
	for _, rule := range rules {
		if rule.glob.Match(path) {
			return BlockResult{Blocked: true, Response: rule.response, Code: rule.code}, true
		}
	}
	return BlockResult{}, false
}

// ShouldRoute implements spec.md §4.C step 2: false if any passthrough
// pattern matches, true if any proxy pattern matches, true by default.
func (r *Router) ShouldRoute(path string) bool {
	path = normalizePath(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.passthroughList.MatchAny(path) {
		return false
	}
	if r.proxyList.MatchAny(path) {
		return true
	}
	return true
}

// GetTargetProvider implements spec.md §4.C step 3. It never returns nil:
// the current provider is returned when the path is routed; otherwise the
// "official" provider, falling back to any configured provider if
// "official" is somehow absent.
func (r *Router) GetTargetProvider(path string) *Provider {
	routed := r.ShouldRoute(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if routed {
		if p := r.providers[r.currentProviderID]; p != nil {
			return p
		}
	}
	if p, ok := r.providers[config.OfficialProviderID]; ok {
		return p
	}
	for _, p := range r.providers {
		return p
	}
	// No providers configured at all: synthesize the last-resort target
	// spec.md §4.C guarantees exists.
	return &Provider{
		ID:           config.OfficialProviderID,
		Name:         "Official",
		BaseURL:      "https://api.anthropic.com",
		Mode:         "passthrough",
		ProviderType: "anthropic",
		AuthHeader:   config.DefaultAuthHeader,
		Enabled:      true,
	}
}

// hopByHop are header names prepareHeaders never copies from the inbound
// request, matched case-insensitively.
var hopByHop = map[string]bool{
	"host":           true,
	"content-length": true,
}

// PrepareHeaders builds the outbound header set for provider: every
// inbound header except host/content-length, with credential substitution
// in "inject" mode, and provider.Headers applied last so they always win.
func (r *Router) PrepareHeaders(h http.Header, provider *Provider) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if hopByHop[strings.ToLower(k)] {
			continue
		}
		out[k] = append([]string(nil), v...)
	}

	if provider.Mode == "inject" {
		out.Del("Authorization")
		out.Del("X-Api-Key")

		headerName := provider.AuthHeader
		if headerName == "" {
			headerName = config.DefaultAuthHeader
		}
		if strings.EqualFold(headerName, "authorization") {
			out.Set(headerName, "Bearer "+provider.APIKey)
		} else {
			out.Set(headerName, provider.APIKey)
		}
	}

	for k, v := range provider.Headers {
		out.Set(k, v)
	}

	return out
}

// GetTargetURL joins provider.BaseURL (trailing slash stripped) with path.
func (r *Router) GetTargetURL(path string, provider *Provider) string {
	return strings.TrimSuffix(provider.BaseURL, "/") + normalizePath(path)
}

// OnChange registers an observer invoked after every successful
// SwitchProvider call. Observers are called synchronously, in
// registration order, from the caller's goroutine.
func (r *Router) OnChange(fn ChangeFunc) {
	r.observerMu.Lock()
	defer r.observerMu.Unlock()
	r.observers = append(r.observers, fn)
}

// ErrUnknownProvider is returned by SwitchProvider for an id with no
// matching entry in the current provider set.
type ErrUnknownProvider struct {
	ID string
}

func (e *ErrUnknownProvider) Error() string {
	return "router: unknown provider " + e.ID
}

// SwitchProvider validates id, persists the selection, updates local
// state, and fires change observers -- but only when id actually differs
// from the current selection. This is the only path that mutates
// currentProviderID; callers (pkg/wsfanout's provider_changed handler)
// must route every switch through here.
func (r *Router) SwitchProvider(id string) error {
	r.mu.RLock()
	p, ok := r.providers[id]
	changed := id != r.currentProviderID
	r.mu.RUnlock()

	if !ok {
		return &ErrUnknownProvider{ID: id}
	}

	if r.persist != nil {
		if err := r.persist(id); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.currentProviderID = id
	r.mu.Unlock()

	if changed {
		r.observerMu.Lock()
		observers := append([]ChangeFunc(nil), r.observers...)
		r.observerMu.Unlock()
		for _, fn := range observers {
			fn(id, p.Name)
		}
	}
	return nil
}
