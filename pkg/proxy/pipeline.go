package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ccrelay/pkg/concurrency"
	"mercator-hq/ccrelay/pkg/config"
	"mercator-hq/ccrelay/pkg/convert"
	"mercator-hq/ccrelay/pkg/logstore"
	"mercator-hq/ccrelay/pkg/metrics"
	"mercator-hq/ccrelay/pkg/modelmap"
	"mercator-hq/ccrelay/pkg/proxy/types"
	"mercator-hq/ccrelay/pkg/router"
)

// MaxRequestBodySize bounds how much of a client request body the pipeline
// will buffer before rejecting it.
const MaxRequestBodySize = 10 * 1024 * 1024

// DefaultUpstreamTimeout is the deadline applied to the upstream round
// trip when the caller does not configure one.
const DefaultUpstreamTimeout = 300 * time.Second

// result is what a submitted task resolves to: either a fully buffered
// response ready for Pipeline to write, or a streamed one already written
// directly to the client by the executor.
type result struct {
	StatusCode           int
	Header               http.Header
	Body                 []byte
	Streamed             bool
	Success              bool
	ErrorMessage         string
	OriginalResponseBody string
}

// Pipeline implements spec.md's request pipeline and HTTP proxy executor:
// it routes each inbound request through the current provider, applies
// model mapping and wire-format conversion, submits the upstream call to
// the bounded worker queue, and writes the response back to the client.
type Pipeline struct {
	router     *router.Router
	manager    *concurrency.Manager[*result]
	logger     logstore.Driver
	httpClient *http.Client
	log        *slog.Logger
	metrics    *metrics.Collector

	upstreamTimeout time.Duration
}

// SetMetrics attaches a metrics collector; every request completed or
// rejected afterward records to it. Safe to call once before the pipeline
// starts serving traffic.
func (p *Pipeline) SetMetrics(c *metrics.Collector) {
	p.metrics = c
}

// New builds a Pipeline. manager may be built with bounded concurrency
// disabled, in which case every task executes directly with no queueing.
func New(r *router.Router, manager *concurrency.Manager[*result], logger logstore.Driver, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		router:  r,
		manager: manager,
		logger:  logger,
		httpClient: &http.Client{
			// Redirects are never desired for an API relay; the caller sees
			// whatever the upstream actually returned.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log:             log.With("component", "proxy"),
		upstreamTimeout: DefaultUpstreamTimeout,
	}
}

// NewFromConfig builds a Pipeline's concurrency.Manager from a
// config.ConcurrencyConfig and its route queues, since the manager's
// result type parameter is this package's unexported result type and so
// cannot be constructed by a caller outside it.
func NewFromConfig(r *router.Router, cc config.ConcurrencyConfig, routeQueues []config.RouteQueueConfig, logger logstore.Driver, log *slog.Logger) *Pipeline {
	def := concurrency.DefaultQueueSpec{
		Enabled:        cc.Enabled,
		MaxWorkers:     cc.MaxWorkers,
		MaxQueueSize:   cc.MaxQueueSize,
		RequestTimeout: time.Duration(cc.RequestTimeout * float64(time.Second)),
	}
	routes := make([]concurrency.RouteQueueSpec, len(routeQueues))
	for i, rq := range routeQueues {
		name := rq.Name
		if name == "" {
			name = rq.Pattern
		}
		routes[i] = concurrency.RouteQueueSpec{
			Name:           name,
			Pattern:        rq.Pattern,
			MaxWorkers:     rq.MaxWorkers,
			MaxQueueSize:   rq.MaxQueueSize,
			RequestTimeout: time.Duration(rq.RequestTimeout * float64(time.Second)),
		}
	}
	manager := concurrency.NewManager[*result](def, routes)
	return New(r, manager, logger, log)
}

// ServeHTTP implements spec.md §4.K's request pipeline.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// Step 1: router stage.
	if block := p.router.ShouldBlock(path); block.Blocked {
		p.writeBlocked(w, r, block)
		return
	}

	// Step 2: target provider, routing classification, headers, target URL.
	provider := p.router.GetTargetProvider(path)
	isRouted := p.router.ShouldRoute(path)
	isOpenAIProvider := provider.IsOpenAI()
	headers := p.router.PrepareHeaders(r.Header, provider)

	// Step 3: body collection.
	bodyStart := time.Now()
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		WriteErrorResponse(w, types.NewInvalidRequestError("failed to read request body", "body", types.CodeInvalidJSON))
		return
	}
	if len(body) > MaxRequestBodySize {
		WriteErrorResponse(w, types.NewInvalidRequestError("request body exceeds maximum size", "body", types.CodeRequestTooLarge))
		return
	}
	p.log.Debug("body received", "path", path, "bytes", len(body), "duration", time.Since(bodyStart))

	var originalRequestBody string
	if p.logger.Enabled() {
		originalRequestBody = string(body)
	}

	// Step 4: body processing -- model mapping, then OpenAI conversion.
	body = modelmap.Apply(body, provider.ModelMap, provider.VLModelMap)

	targetPath := withQuery(path, r.URL.RawQuery)
	targetURL := p.router.GetTargetURL(targetPath, provider)

	if isOpenAIProvider {
		if newPath, ok := convert.RewritePath(path); ok {
			if converted, cerr := convert.ConvertRequest(body); cerr == nil {
				body = converted
				targetPath = withQuery(newPath, r.URL.RawQuery)
				targetURL = p.router.GetTargetURL(targetPath, provider)
			} else {
				p.log.Warn("request conversion failed, forwarding original body", "error", cerr, "path", path)
			}
		}
	}

	// Step 5: pending log insert, client id.
	clientID := uuid.NewString()
	routeType := logstore.RoutePassthrough
	if isRouted {
		routeType = logstore.RouteRouter
	}

	createdAt := time.Now()
	if p.logger.Enabled() {
		pending := &logstore.RequestLog{
			ID:                  clientID,
			Timestamp:           createdAt,
			ProviderID:          provider.ID,
			ProviderName:        provider.Name,
			Method:              r.Method,
			Path:                path,
			TargetURL:           targetURL,
			RequestBody:         string(body),
			OriginalRequestBody: originalRequestBody,
			ClientID:            clientID,
			Status:              logstore.StatusPending,
			RouteType:           routeType,
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := p.logger.InsertLogPending(ctx, pending); err != nil {
			p.log.Warn("failed to insert pending log", "error", err, "client_id", clientID)
		}
		cancel()
	}

	task, release := concurrency.NewTask(r.Context(), clientID)
	defer release()

	upstream := &upstreamRequest{
		method:           r.Method,
		targetURL:        targetURL,
		header:           headers,
		body:             body,
		isOpenAIProvider: isOpenAIProvider,
		writer:           w,
		timeout:          p.upstreamTimeout,
		client:           p.httpClient,
	}

	// Steps 6-7: queue selection and submission.
	res, err := p.manager.Submit(path, task, func(ctx context.Context, t *concurrency.Task) (*result, error) {
		return executeUpstream(ctx, t, upstream)
	})

	duration := time.Since(createdAt)

	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordRequest(provider.ID, "rejected", duration.Seconds())
		}
		p.resolveRejected(w, r, clientID, err, duration)
		return
	}

	if res.Streamed {
		// Headers and body were already written directly to w by the
		// executor; only the completion log remains.
		p.completeLog(clientID, provider.ID, res, duration)
		return
	}

	for k, vs := range res.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)

	p.completeLog(clientID, provider.ID, res, duration)
}

// Stats reports the concurrency manager's aggregate queue/worker state for
// the management API's GET /queue endpoint.
func (p *Pipeline) Stats() concurrency.Stats {
	return p.manager.GetStats()
}

// QueueStats reports per-queue detail (default plus every route queue).
func (p *Pipeline) QueueStats() map[string]concurrency.Stats {
	return p.manager.GetQueueStats()
}

// ClearQueue cancels and removes every waiting task and returns how many
// were removed, for the management API's DELETE /queue endpoint.
func (p *Pipeline) ClearQueue() int {
	return p.manager.ClearQueue()
}

func (p *Pipeline) completeLog(clientID, providerID string, res *result, duration time.Duration) {
	if p.metrics != nil {
		status := "error"
		if res.Success {
			status = "success"
		}
		p.metrics.RecordRequest(providerID, status, duration.Seconds())
	}

	if !p.logger.Enabled() {
		return
	}
	body := res.OriginalResponseBody
	if body == "" {
		body = string(res.Body)
	}
	p.logger.UpdateLogCompleted(clientID, res.StatusCode, string(res.Body), duration.Milliseconds(), res.Success, res.ErrorMessage, body)
}

// resolveRejected implements spec.md §4.K step 7's rejection branch: update
// the pending log to cancelled/timeout and write the mapped error response
// unless the client already disconnected.
func (p *Pipeline) resolveRejected(w http.ResponseWriter, r *http.Request, clientID string, err error, duration time.Duration) {
	status := logstore.StatusCancelled
	var queueTimeout *concurrency.QueueTimeoutError
	if errors.As(err, &queueTimeout) {
		status = logstore.StatusTimeout
	}

	errResp := HandleError(err)
	statusCode := errResp.Error.HTTPStatusCode()

	if p.logger.Enabled() {
		p.logger.UpdateLogStatus(clientID, status, statusCode, duration.Milliseconds(), err.Error())
	}

	if errors.Is(err, context.Canceled) || r.Context().Err() != nil {
		// Client is gone; nothing to write.
		return
	}

	WriteErrorResponse(w, errResp)
}

func (p *Pipeline) writeBlocked(w http.ResponseWriter, r *http.Request, block router.BlockResult) {
	code := block.Code
	if code == 0 {
		code = http.StatusForbidden
	}

	body := []byte(block.Response)
	if json.Valid(body) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(code)
	w.Write(body)

	if p.logger.Enabled() {
		p.logger.InsertLog(&logstore.RequestLog{
			ID:           uuid.NewString(),
			Timestamp:    time.Now(),
			Method:       r.Method,
			Path:         r.URL.Path,
			StatusCode:   code,
			Success:      code < 400,
			Status:       logstore.StatusCompleted,
			RouteType:    logstore.RouteBlock,
			ResponseBody: block.Response,
		})
	}
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
