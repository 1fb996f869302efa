package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/ccrelay/pkg/logstore"
)

func TestHandleGetLogReturns404ForMissingID(t *testing.T) {
	d := &Deps{Logger: logstore.NoopDriver{}}
	mux := NewMux(d)

	req := httptest.NewRequest(http.MethodGet, "/ccrelay/api/logs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing log id, got %d: %s", rec.Code, rec.Body.String())
	}
}
