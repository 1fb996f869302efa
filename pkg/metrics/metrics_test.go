package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAllMetrics(t *testing.T) {
	c := New()

	if c.requestsTotal == nil || c.requestDuration == nil || c.queueDepth == nil || c.electionRole == nil {
		t.Fatal("expected all metric vectors to be initialized")
	}
}

func TestRecordRequest(t *testing.T) {
	c := New()

	c.RecordRequest("official", "success", 0.25)
	c.RecordRequest("official", "error", 1.5)

	if got := testutil.ToFloat64(c.requestsTotal.WithLabelValues("official", "success")); got != 1 {
		t.Errorf("requestsTotal[official,success] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.requestsTotal.WithLabelValues("official", "error")); got != 1 {
		t.Errorf("requestsTotal[official,error] = %v, want 1", got)
	}
}

func TestSetQueueDepth(t *testing.T) {
	c := New()

	c.SetQueueDepth("default", 3)
	if got := testutil.ToFloat64(c.queueDepth.WithLabelValues("default")); got != 3 {
		t.Errorf("queueDepth[default] = %v, want 3", got)
	}

	c.SetQueueDepth("default", 0)
	if got := testutil.ToFloat64(c.queueDepth.WithLabelValues("default")); got != 0 {
		t.Errorf("queueDepth[default] = %v, want 0", got)
	}
}

func TestSetRoleIsExclusive(t *testing.T) {
	c := New()

	c.SetRole("leader")
	if got := testutil.ToFloat64(c.electionRole.WithLabelValues("leader")); got != 1 {
		t.Errorf("electionRole[leader] = %v, want 1", got)
	}

	c.SetRole("follower")
	if got := testutil.ToFloat64(c.electionRole.WithLabelValues("leader")); got != 0 {
		t.Errorf("electionRole[leader] = %v, want 0 after transition", got)
	}
	if got := testutil.ToFloat64(c.electionRole.WithLabelValues("follower")); got != 1 {
		t.Errorf("electionRole[follower] = %v, want 1", got)
	}
}
