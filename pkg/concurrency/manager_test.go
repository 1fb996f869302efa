package concurrency

import (
	"context"
	"testing"
	"time"
)

func TestManagerRoutesToMatchingRouteQueue(t *testing.T) {
	m := NewManager[string](
		DefaultQueueSpec{Enabled: true, MaxWorkers: 4},
		[]RouteQueueSpec{{Name: "images", Pattern: `^/v1/images/.*$`, MaxWorkers: 1}},
	)

	task, cancel := NewTask(context.Background(), "t1")
	defer cancel()
	_, err := m.Submit("/v1/images/generate", task, func(ctx context.Context, task *Task) (string, error) {
		return "image", nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stats := m.GetQueueStats()
	if stats["images"].TotalProcessed != 1 {
		t.Errorf("images queue TotalProcessed = %d, want 1", stats["images"].TotalProcessed)
	}
	if stats["default"].TotalProcessed != 0 {
		t.Errorf("default queue should not have processed the images request")
	}
}

func TestManagerFallsBackToDefaultQueue(t *testing.T) {
	m := NewManager[string](
		DefaultQueueSpec{Enabled: true, MaxWorkers: 4},
		[]RouteQueueSpec{{Name: "images", Pattern: `^/v1/images/.*$`, MaxWorkers: 1}},
	)

	task, cancel := NewTask(context.Background(), "t1")
	defer cancel()
	_, _ = m.Submit("/v1/messages", task, func(ctx context.Context, task *Task) (string, error) {
		return "msg", nil
	})

	if m.GetQueueStats()["default"].TotalProcessed != 1 {
		t.Error("expected the unmatched path to fall back to the default queue")
	}
}

func TestManagerDisabledRunsDirectly(t *testing.T) {
	m := NewManager[string](DefaultQueueSpec{Enabled: false}, nil)

	task, cancel := NewTask(context.Background(), "t1")
	defer cancel()
	got, err := m.Submit("/anything", task, func(ctx context.Context, task *Task) (string, error) {
		return "direct", nil
	})
	if err != nil || got != "direct" {
		t.Fatalf("got=%q err=%v, want direct/nil", got, err)
	}
	if task.StartedAt().IsZero() {
		t.Error("expected MarkStarted to be called even without a queue")
	}
}

func TestManagerClearQueueAggregatesAcrossQueues(t *testing.T) {
	m := NewManager[string](
		DefaultQueueSpec{Enabled: true, MaxWorkers: 1},
		[]RouteQueueSpec{{Name: "images", Pattern: `^/v1/images/.*$`, MaxWorkers: 1}},
	)
	block := make(chan struct{})
	defer close(block)

	busy1, c1 := NewTask(context.Background(), "busy-default")
	defer c1()
	go m.Submit("/v1/messages", busy1, func(ctx context.Context, task *Task) (string, error) {
		<-block
		return "", nil
	})
	busy2, c2 := NewTask(context.Background(), "busy-images")
	defer c2()
	go m.Submit("/v1/images/x", busy2, func(ctx context.Context, task *Task) (string, error) {
		<-block
		return "", nil
	})
	time.Sleep(20 * time.Millisecond)

	waiting1, cw1 := NewTask(context.Background(), "waiting-default")
	defer cw1()
	go m.Submit("/v1/messages", waiting1, func(ctx context.Context, task *Task) (string, error) {
		return "", nil
	})
	waiting2, cw2 := NewTask(context.Background(), "waiting-images")
	defer cw2()
	go m.Submit("/v1/images/y", waiting2, func(ctx context.Context, task *Task) (string, error) {
		return "", nil
	})
	time.Sleep(20 * time.Millisecond)

	removed := m.ClearQueue()
	if removed != 2 {
		t.Errorf("ClearQueue() = %d, want 2", removed)
	}
}
