package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"mercator-hq/ccrelay/pkg/config"
	"mercator-hq/ccrelay/pkg/election"
	"mercator-hq/ccrelay/pkg/logstore"
	"mercator-hq/ccrelay/pkg/proxy"
	"mercator-hq/ccrelay/pkg/router"
)

// Switcher is the interface the /switch handler uses to change the active
// provider. Per spec.md §4.J every switch goes out over the WebSocket
// fan-out and waits for the leader's ack, even on the leader itself (via
// its loopback client), so the router only ever mutates from a received
// provider_changed message.
type Switcher interface {
	SwitchProvider(ctx context.Context, providerID string) error
}

// Deps are the collaborators the management API handlers need. All fields
// are required except Election, which is nil in a standalone (no
// multi-process coordination) deployment.
type Deps struct {
	Router     *router.Router
	Pipeline   *proxy.Pipeline
	Logger     logstore.Driver
	Switcher   Switcher
	Election   *election.Election
	ConfigPath string
	Port       int
	Version    string
	BuildDate  string

	configMu sync.Mutex
}

// NewMux builds the management API's http.Handler, covering every route in
// spec.md §6's table plus a JSON 404 for anything else under
// /ccrelay/api/.
func NewMux(d *Deps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ccrelay/api/status", d.handleStatus)
	mux.HandleFunc("GET /ccrelay/api/providers", d.handleListProviders)
	mux.HandleFunc("POST /ccrelay/api/providers", d.handleUpsertProvider)
	mux.HandleFunc("DELETE /ccrelay/api/providers/{id}", d.handleDeleteProvider)
	mux.HandleFunc("POST /ccrelay/api/switch", d.handleSwitch)
	mux.HandleFunc("POST /ccrelay/api/reload", d.handleReload)
	mux.HandleFunc("GET /ccrelay/api/logs", d.handleListLogs)
	mux.HandleFunc("GET /ccrelay/api/logs/{id}", d.handleGetLog)
	mux.HandleFunc("DELETE /ccrelay/api/logs", d.handleDeleteLogs)
	mux.HandleFunc("DELETE /ccrelay/api/queue", d.handleClearQueue)
	mux.HandleFunc("GET /ccrelay/api/queue", d.handleQueueStats)
	mux.HandleFunc("GET /ccrelay/api/stats", d.handleStats)
	mux.HandleFunc("GET /ccrelay/api/version", d.handleVersion)
	mux.HandleFunc("/ccrelay/api/", notFound)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "API endpoint not found")
}

func decodeJSON(r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v) == nil
}

// --- GET /status ---

type statusResponse struct {
	Status          string `json:"status"`
	CurrentProvider string `json:"currentProvider"`
	ProviderName    string `json:"providerName,omitempty"`
	ProviderMode    string `json:"providerMode,omitempty"`
	Port            int    `json:"port"`
}

func (d *Deps) handleStatus(w http.ResponseWriter, r *http.Request) {
	role := "standalone"
	if d.Election != nil {
		role = string(d.Election.State())
	}

	resp := statusResponse{Status: role, Port: d.Port}
	if p := d.Router.CurrentProvider(); p != nil {
		resp.CurrentProvider = p.ID
		resp.ProviderName = p.Name
		resp.ProviderMode = p.Mode
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- GET/POST /providers, DELETE /providers/{id} ---

type providerView struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	BaseURL      string              `json:"baseUrl"`
	Mode         string              `json:"mode"`
	ProviderType string              `json:"providerType"`
	APIKey       string              `json:"apiKey,omitempty"`
	AuthHeader   string              `json:"authHeader"`
	ModelMap     []config.ModelMapEntry `json:"modelMap,omitempty"`
	VLModelMap   []config.ModelMapEntry `json:"vlModelMap,omitempty"`
	Headers      map[string]string   `json:"headers,omitempty"`
	Enabled      bool                `json:"enabled"`
}

func toProviderView(p *router.Provider) providerView {
	modelMap := make([]config.ModelMapEntry, len(p.ModelMap))
	for i, e := range p.ModelMap {
		modelMap[i] = config.ModelMapEntry{Pattern: e.Pattern, Model: e.Model}
	}
	vlModelMap := make([]config.ModelMapEntry, len(p.VLModelMap))
	for i, e := range p.VLModelMap {
		vlModelMap[i] = config.ModelMapEntry{Pattern: e.Pattern, Model: e.Model}
	}
	return providerView{
		ID:           p.ID,
		Name:         p.Name,
		BaseURL:      p.BaseURL,
		Mode:         p.Mode,
		ProviderType: p.ProviderType,
		APIKey:       logstore.MaskAPIKey(p.APIKey),
		AuthHeader:   p.AuthHeader,
		ModelMap:     modelMap,
		VLModelMap:   vlModelMap,
		Headers:      p.Headers,
		Enabled:      p.Enabled,
	}
}

func (d *Deps) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers := d.Router.ListProviders()
	views := make([]providerView, len(providers))
	for i, p := range providers {
		views[i] = toProviderView(p)
	}
	current := ""
	if p := d.Router.CurrentProvider(); p != nil {
		current = p.ID
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": views,
		"current":   current,
	})
}

type upsertProviderRequest struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	BaseURL      string                 `json:"baseUrl"`
	Mode         string                 `json:"mode"`
	ProviderType string                 `json:"providerType"`
	APIKey       string                 `json:"apiKey"`
	AuthHeader   string                 `json:"authHeader"`
	ModelMap     []config.ModelMapEntry `json:"modelMap"`
	VLModelMap   []config.ModelMapEntry `json:"vlModelMap"`
	Headers      map[string]string      `json:"headers"`
	Enabled      bool                   `json:"enabled"`
}

func (d *Deps) handleUpsertProvider(w http.ResponseWriter, r *http.Request) {
	var req upsertProviderRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if !config.ValidProviderID(req.ID) {
		writeError(w, http.StatusBadRequest, "provider id must match ^[A-Za-z0-9_-]+$")
		return
	}

	d.configMu.Lock()
	defer d.configMu.Unlock()

	cfg := config.GetConfig()
	next := *cfg
	next.Providers = cloneProviders(cfg.Providers)
	next.Providers[req.ID] = config.ProviderConfig{
		Name:         req.Name,
		BaseURL:      req.BaseURL,
		Mode:         req.Mode,
		ProviderType: req.ProviderType,
		APIKey:       req.APIKey,
		AuthHeader:   req.AuthHeader,
		ModelMap:     req.ModelMap,
		VLModelMap:   req.VLModelMap,
		Headers:      req.Headers,
		Enabled:      req.Enabled,
	}

	if err := config.Validate(&next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.persistConfig(&next); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if p, ok := d.Router.GetProvider(req.ID); ok {
		writeJSON(w, http.StatusOK, toProviderView(p))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID})
}

func (d *Deps) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == config.OfficialProviderID {
		writeError(w, http.StatusBadRequest, "cannot delete the official provider")
		return
	}

	d.configMu.Lock()
	defer d.configMu.Unlock()

	cfg := config.GetConfig()
	if _, ok := cfg.Providers[id]; !ok {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}

	next := *cfg
	next.Providers = cloneProviders(cfg.Providers)
	delete(next.Providers, id)

	if err := config.Validate(&next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.persistConfig(&next); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func cloneProviders(in map[string]config.ProviderConfig) map[string]config.ProviderConfig {
	out := make(map[string]config.ProviderConfig, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// persistConfig replaces the global config singleton, saves it to disk, and
// reloads the router from it. Called with configMu held.
func (d *Deps) persistConfig(cfg *config.Config) error {
	config.SetConfig(cfg)
	if err := config.SaveConfig(d.ConfigPath, cfg); err != nil {
		return err
	}
	d.Router.Reload(cfg)
	return nil
}

// --- POST /switch ---

type switchRequest struct {
	Provider string `json:"provider"`
}

func (d *Deps) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if p, ok := d.Router.GetProvider(req.Provider); !ok || !p.Enabled {
		ids := make([]string, 0)
		for _, p := range d.Router.ListProviders() {
			ids = append(ids, p.ID)
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":     "unknown provider",
			"available": ids,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := d.Switcher.SwitchProvider(ctx, req.Provider); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "provider": req.Provider})
}

// --- POST /reload ---

func (d *Deps) handleReload(w http.ResponseWriter, r *http.Request) {
	d.configMu.Lock()
	defer d.configMu.Unlock()

	if err := config.ReloadConfig(d.ConfigPath); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	d.Router.Reload(config.GetConfig())
	writeJSON(w, http.StatusOK, map[string]bool{"reloaded": true})
}

// --- logs ---

func (d *Deps) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := logstore.Filter{
		ProviderID:  q.Get("providerId"),
		Method:      q.Get("method"),
		PathPattern: q.Get("pathPattern"),
		Limit:       config.DefaultLogQueryLimit,
	}
	if v := q.Get("minDuration"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MinDuration = time.Duration(ms) * time.Millisecond
		}
	}
	if v := q.Get("maxDuration"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MaxDuration = time.Duration(ms) * time.Millisecond
		}
	}
	if v := q.Get("hasError"); v != "" {
		b := v == "true"
		filter.HasError = &b
	}
	if v := q.Get("startTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartTime = &t
		}
	}
	if v := q.Get("endTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndTime = &t
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
		if filter.Limit > config.MaxLogQueryLimit {
			filter.Limit = config.MaxLogQueryLimit
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := d.Logger.QueryLogs(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (d *Deps) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	log, err := d.Logger.GetLogByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if log == nil {
		writeError(w, http.StatusNotFound, "log not found")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

type deleteLogsRequest struct {
	IDs []string `json:"ids"`
}

func (d *Deps) handleDeleteLogs(w http.ResponseWriter, r *http.Request) {
	var req deleteLogsRequest
	if r.ContentLength != 0 && !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	var (
		n   int
		err error
	)
	if len(req.IDs) == 0 {
		n, err = d.Logger.ClearAllLogs(r.Context())
	} else {
		n, err = d.Logger.DeleteLogs(r.Context(), req.IDs)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// --- queue ---

func (d *Deps) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	n := d.Pipeline.ClearQueue()
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (d *Deps) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"aggregate": d.Pipeline.Stats(),
		"queues":    d.Pipeline.QueueStats(),
	})
}

// --- stats ---

func (d *Deps) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := d.Logger.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- version ---

func (d *Deps) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": d.Version,
		"date":    d.BuildDate,
		"features": []string{
			"router", "concurrency", "converter", "logstore", "election", "wsfanout",
		},
	})
}
