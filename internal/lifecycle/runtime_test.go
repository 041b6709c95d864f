package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type testComponent struct {
	name      string
	startErr  error
	stopErr   error
	events    *[]string
	startCall int
	stopCall  int
}

func (c *testComponent) Start(ctx context.Context) error {
	_ = ctx
	c.startCall++
	if c.events != nil {
		*c.events = append(*c.events, "start:"+c.name)
	}
	return c.startErr
}

func (c *testComponent) Stop(ctx context.Context) error {
	_ = ctx
	c.stopCall++
	if c.events != nil {
		*c.events = append(*c.events, "stop:"+c.name)
	}
	return c.stopErr
}

func TestRuntimeStopsInReverseStartOrder(t *testing.T) {
	t.Parallel()

	events := make([]string, 0, 6)
	store := &testComponent{name: "store", events: &events}
	metrics := &testComponent{name: "metrics", events: &events}
	poller := &testComponent{name: "poller", events: &events}

	runtime := NewRuntime()
	runtime.Register("store", store)
	runtime.Register("metrics", metrics)
	runtime.Register("poller", poller)

	if err := runtime.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	if err := runtime.Stop(context.Background()); err != nil {
		t.Fatalf("stop runtime: %v", err)
	}

	expected := []string{
		"start:store",
		"start:metrics",
		"start:poller",
		"stop:poller",
		"stop:metrics",
		"stop:store",
	}
	if !reflect.DeepEqual(events, expected) {
		t.Fatalf("unexpected order: got %v want %v", events, expected)
	}
}

func TestRuntimeStartFailureStopsStartedComponents(t *testing.T) {
	t.Parallel()

	events := make([]string, 0, 4)
	startErr := errors.New("boom")
	store := &testComponent{name: "store", events: &events}
	poller := &testComponent{name: "poller", events: &events, startErr: startErr}

	runtime := NewRuntime()
	runtime.Register("store", store)
	runtime.Register("poller", poller)

	err := runtime.Start(context.Background())
	if err == nil {
		t.Fatalf("expected start error")
	}
	if !errors.Is(err, startErr) {
		t.Fatalf("unexpected start error: %v", err)
	}

	if store.stopCall != 1 {
		t.Fatalf("expected started component to be stopped once, got %d", store.stopCall)
	}
	if poller.stopCall != 0 {
		t.Fatalf("failed component must not be stopped, got %d", poller.stopCall)
	}
}

func TestRuntimeIgnoresNilComponents(t *testing.T) {
	t.Parallel()

	runtime := NewRuntime()
	runtime.Register("nothing", nil)
	if err := runtime.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	if err := runtime.Stop(context.Background()); err != nil {
		t.Fatalf("stop runtime: %v", err)
	}
}
