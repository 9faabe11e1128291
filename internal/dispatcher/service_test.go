package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-blocks/pkg/activity"
	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/config"
	"github.com/goliatone/go-blocks/pkg/interfaces/cache"
	"github.com/goliatone/go-blocks/pkg/registry"
	"github.com/goliatone/go-blocks/pkg/settings"
	"github.com/google/go-cmp/cmp"
)

type stubRenderer struct {
	loads    atomic.Int32
	executes atomic.Int32
	loadErr  error
	fn       func(instance block.Instance, values block.Settings) (string, error)
}

func (r *stubRenderer) Load(_ context.Context, _ block.Instance) error {
	r.loads.Add(1)
	return r.loadErr
}

func (r *stubRenderer) Execute(_ context.Context, instance block.Instance, values block.Settings) (string, error) {
	r.executes.Add(1)
	if r.fn != nil {
		return r.fn(instance, values)
	}
	return fmt.Sprintf("%s:%v", instance.BlockType(), values["title"]), nil
}

type keyedRenderer struct {
	stubRenderer
}

func (r *keyedRenderer) CacheKeys(_ block.Instance, values block.Settings) map[string]any {
	return map[string]any{"url": values["url"]}
}

type staticDeployment map[block.Type]block.Settings

func (d staticDeployment) SettingsFor(typ block.Type) block.Settings {
	return d[typ].Clone()
}

type recordingHook struct {
	mu     sync.Mutex
	events []activity.Event
}

func (h *recordingHook) Notify(_ context.Context, evt activity.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
}

func (h *recordingHook) verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, evt := range h.events {
		out[i] = evt.Verb
	}
	return out
}

func newTestService(t *testing.T, deps Dependencies, descriptors map[block.Type]block.Descriptor) *Service {
	t.Helper()
	reg := registry.New()
	for typ, desc := range descriptors {
		if err := reg.Register(typ, desc); err != nil {
			t.Fatalf("register %s: %v", typ, err)
		}
	}
	reg.Freeze()
	deps.Registry = reg
	svc, err := New(deps)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return svc
}

func TestNewRequiresRegistry(t *testing.T) {
	if _, err := New(Dependencies{}); !errors.Is(err, ErrMissingRegistry) {
		t.Fatalf("expected missing registry error, got %v", err)
	}
}

func TestRenderDisabledShortCircuits(t *testing.T) {
	renderer := &stubRenderer{}
	svc := newTestService(t, Dependencies{}, map[block.Type]block.Descriptor{
		"rss": {Renderer: renderer},
	})

	result, err := svc.Render(context.Background(), block.Static{ID: "b1", Type: "rss", Enabled: false}, block.Settings{"title": "x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !result.Skipped() || result.Content != "" || result.Settings != nil {
		t.Fatalf("expected skipped empty result, got %+v", result)
	}
	if renderer.loads.Load() != 0 || renderer.executes.Load() != 0 {
		t.Fatalf("disabled block must not load or execute")
	}
}

func TestRenderDisabledUnknownTypeStillSkips(t *testing.T) {
	svc := newTestService(t, Dependencies{}, nil)

	result, err := svc.Render(context.Background(), block.Static{Type: "ghost"}, nil)
	if err != nil || !result.Skipped() {
		t.Fatalf("expected skip without lookup, got %+v %v", result, err)
	}
}

func TestRenderUnknownTypeCallsNoHook(t *testing.T) {
	renderer := &stubRenderer{}
	svc := newTestService(t, Dependencies{}, map[block.Type]block.Descriptor{
		"rss": {Renderer: renderer},
	})

	_, err := svc.Render(context.Background(), block.Static{ID: "b1", Type: "weather", Enabled: true}, nil)
	var unknown *block.UnknownTypeError
	if !errors.As(err, &unknown) || unknown.Type != "weather" {
		t.Fatalf("expected unknown type error, got %v", err)
	}
	if !errors.Is(err, block.ErrUnknownType) {
		t.Fatalf("expected sentinel match")
	}
	if renderer.loads.Load() != 0 || renderer.executes.Load() != 0 {
		t.Fatalf("no renderer hook may run for an unknown type")
	}
}

func TestRenderCascadePrecedence(t *testing.T) {
	var seen block.Settings
	renderer := &stubRenderer{fn: func(_ block.Instance, values block.Settings) (string, error) {
		seen = values
		return "ok", nil
	}}
	svc := newTestService(t, Dependencies{
		Deployment: staticDeployment{"rss": {"b": 3}},
	}, map[block.Type]block.Descriptor{
		"rss": {Defaults: block.Settings{"a": 1, "b": 2}, Renderer: renderer},
	})

	result, err := svc.Render(context.Background(),
		block.Static{ID: "b1", Type: "rss", Enabled: true, Options: block.Settings{"c": 6}},
		block.Settings{"b": 4, "c": 5},
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := block.Settings{"a": 1, "b": 4, "c": 6}
	if diff := cmp.Diff(want, result.Settings); diff != "" {
		t.Fatalf("result settings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("renderer settings mismatch (-want +got):\n%s", diff)
	}
	if result.State != block.StateDone || result.InstanceID != "b1" || result.Type != "rss" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRenderFeedBlockEndToEnd(t *testing.T) {
	renderer := &stubRenderer{}
	svc := newTestService(t, Dependencies{}, map[block.Type]block.Descriptor{
		"acme_main.block.rss": {
			Defaults: block.Settings{"url": false, "title": "Feed items"},
			Renderer: renderer,
		},
	})

	instance := block.Static{
		ID:      "feed",
		Type:    "acme_main.block.rss",
		Enabled: true,
		Options: block.Settings{"url": "http://example.com/feed"},
	}
	result, err := svc.Render(context.Background(), instance, block.Settings{"title": "My News"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := block.Settings{"url": "http://example.com/feed", "title": "My News"}
	if diff := cmp.Diff(want, result.Settings); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
	if result.Content != "acme_main.block.rss:My News" {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if renderer.loads.Load() != 1 || renderer.executes.Load() != 1 {
		t.Fatalf("expected one load and one execute")
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	svc := newTestService(t, Dependencies{}, map[block.Type]block.Descriptor{
		"text": {Defaults: block.Settings{"title": "Hello"}, Renderer: &stubRenderer{}},
	})
	instance := block.Static{ID: "t1", Type: "text", Enabled: true, Options: block.Settings{"body": "x"}}

	first, err := svc.Render(context.Background(), instance, nil)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := svc.Render(context.Background(), instance, nil)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("renders differ (-first +second):\n%s", diff)
	}
}

func TestRenderRendererCannotMutateResult(t *testing.T) {
	renderer := &stubRenderer{fn: func(_ block.Instance, values block.Settings) (string, error) {
		values["title"] = "mutated"
		return "ok", nil
	}}
	options := block.Settings{"title": "kept"}
	svc := newTestService(t, Dependencies{}, map[block.Type]block.Descriptor{
		"text": {Renderer: renderer},
	})

	result, err := svc.Render(context.Background(), block.Static{Type: "text", Enabled: true, Options: options}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Settings["title"] != "kept" || options["title"] != "kept" {
		t.Fatalf("renderer mutation leaked: result=%v options=%v", result.Settings, options)
	}
}

func TestRenderLoadFailure(t *testing.T) {
	renderer := &stubRenderer{loadErr: errors.New("db down")}
	svc := newTestService(t, Dependencies{}, map[block.Type]block.Descriptor{
		"rss": {Renderer: renderer},
	})

	result, err := svc.Render(context.Background(), block.Static{ID: "b1", Type: "rss", Enabled: true}, nil)
	var loadErr *block.LoadError
	if !errors.As(err, &loadErr) || loadErr.InstanceID != "b1" {
		t.Fatalf("expected load error, got %v", err)
	}
	if !errors.Is(err, block.ErrLoad) || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if renderer.executes.Load() != 0 {
		t.Fatalf("execute must not run after a failed load")
	}
	if result.State != block.StateIdle {
		t.Fatalf("expected idle state, got %s", result.State)
	}
}

func TestRenderExecuteFailureAndPanic(t *testing.T) {
	cause := errors.New("feed unreachable")
	svc := newTestService(t, Dependencies{}, map[block.Type]block.Descriptor{
		"broken": {Renderer: block.RendererFunc(func(context.Context, block.Instance, block.Settings) (string, error) {
			return "partial", cause
		})},
		"panics": {Renderer: block.RendererFunc(func(context.Context, block.Instance, block.Settings) (string, error) {
			panic("nil map write")
		})},
	})

	result, err := svc.Render(context.Background(), block.Static{ID: "b1", Type: "broken", Enabled: true}, nil)
	var renderErr *block.RenderError
	if !errors.As(err, &renderErr) || renderErr.Type != "broken" || renderErr.InstanceID != "b1" {
		t.Fatalf("expected render error, got %v", err)
	}
	if !errors.Is(err, cause) || renderErr.Panicked {
		t.Fatalf("expected wrapped cause without panic flag")
	}
	if result.Content != "" || result.State != block.StateExecuted {
		t.Fatalf("unexpected failed result %+v", result)
	}

	_, err = svc.Render(context.Background(), block.Static{ID: "b2", Type: "panics", Enabled: true}, nil)
	if !errors.As(err, &renderErr) || !renderErr.Panicked {
		t.Fatalf("expected panic converted to render error, got %v", err)
	}
}

func TestRenderPageIsolatesFailures(t *testing.T) {
	hook := &recordingHook{}
	svc := newTestService(t, Dependencies{
		Hooks:  activity.Hooks{hook},
		Config: config.DispatcherConfig{MaxWorkers: 2},
	}, map[block.Type]block.Descriptor{
		"ok": {Renderer: &stubRenderer{}},
		"fail": {Renderer: block.RendererFunc(func(context.Context, block.Instance, block.Settings) (string, error) {
			return "", errors.New("boom")
		})},
		"panic": {Renderer: block.RendererFunc(func(context.Context, block.Instance, block.Settings) (string, error) {
			panic("boom")
		})},
	})

	outcomes := svc.RenderPage(context.Background(), []Request{
		{Instance: block.Static{ID: "1", Type: "fail", Enabled: true}},
		{Instance: block.Static{ID: "2", Type: "ok", Enabled: true}, Overrides: block.Settings{"title": "A"}},
		{Instance: block.Static{ID: "3", Type: "panic", Enabled: true}},
		{Instance: block.Static{ID: "4", Type: "ok", Enabled: false}},
		{Instance: block.Static{ID: "5", Type: "missing", Enabled: true}},
	})

	if len(outcomes) != 5 {
		t.Fatalf("expected 5 outcomes, got %d", len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.Index != i {
			t.Fatalf("outcome %d out of order: %d", i, outcome.Index)
		}
	}
	if !errors.Is(outcomes[0].Err, block.ErrRender) {
		t.Fatalf("expected render error for block 1, got %v", outcomes[0].Err)
	}
	if outcomes[1].Err != nil || outcomes[1].Result.Content != "ok:A" {
		t.Fatalf("healthy block affected: %+v", outcomes[1])
	}
	if !errors.Is(outcomes[2].Err, block.ErrRender) {
		t.Fatalf("expected contained panic, got %v", outcomes[2].Err)
	}
	if outcomes[3].Err != nil || !outcomes[3].Result.Skipped() {
		t.Fatalf("expected skipped block, got %+v", outcomes[3])
	}
	if !errors.Is(outcomes[4].Err, block.ErrUnknownType) {
		t.Fatalf("expected unknown type, got %v", outcomes[4].Err)
	}

	verbs := hook.verbs()
	sort.Strings(verbs)
	want := []string{activity.VerbFailed, activity.VerbFailed, activity.VerbFailed, activity.VerbRendered, activity.VerbSkipped}
	if diff := cmp.Diff(want, verbs); diff != "" {
		t.Fatalf("activity verbs mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderPageSingleWorkerDoesNotStallBehindHungRenderer(t *testing.T) {
	release := make(chan struct{})
	sibling := &stubRenderer{}
	svc := newTestService(t, Dependencies{
		Config: config.DispatcherConfig{MaxWorkers: 1},
	}, map[block.Type]block.Descriptor{
		"hang": {Renderer: block.RendererFunc(func(context.Context, block.Instance, block.Settings) (string, error) {
			<-release
			return "late", nil
		})},
		"ok": {Renderer: sibling},
	})
	if svc.cfg.MaxWorkers != config.MinWorkers {
		t.Fatalf("expected worker floor %d, got %d", config.MinWorkers, svc.cfg.MaxWorkers)
	}

	done := make(chan []Outcome, 1)
	go func() {
		done <- svc.RenderPage(context.Background(), []Request{
			{Instance: block.Static{ID: "1", Type: "hang", Enabled: true}},
			{Instance: block.Static{ID: "2", Type: "ok", Enabled: true}},
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sibling.executes.Load() == 0 {
		if time.Now().After(deadline) {
			close(release)
			t.Fatalf("queued block never ran while another renderer hung")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(release)

	outcomes := <-done
	if outcomes[0].Result.Content != "late" || outcomes[1].Err != nil {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
}

func TestRenderPageHonoursCancelledContext(t *testing.T) {
	svc := newTestService(t, Dependencies{}, map[block.Type]block.Descriptor{
		"ok": {Renderer: &stubRenderer{}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := svc.RenderPage(ctx, []Request{{Instance: block.Static{Type: "ok", Enabled: true}}})
	if !errors.Is(outcomes[0].Err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", outcomes[0].Err)
	}
}

func TestRenderCachesWhenTTLIsSet(t *testing.T) {
	renderer := &stubRenderer{}
	mem := cache.NewMemory()
	svc := newTestService(t, Dependencies{Cache: mem}, map[block.Type]block.Descriptor{
		"rss": {Defaults: block.Settings{"title": "Feed"}, Renderer: renderer},
	})
	instance := block.Static{ID: "b1", Type: "rss", Enabled: true, Options: block.Settings{"ttl": "5m"}}

	first, err := svc.Render(context.Background(), instance, nil)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := svc.Render(context.Background(), instance, nil)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if first.Cached || !second.Cached || second.Content != first.Content {
		t.Fatalf("expected second render served from cache: %+v / %+v", first, second)
	}
	if renderer.executes.Load() != 1 {
		t.Fatalf("expected one execute, got %d", renderer.executes.Load())
	}

	if _, err := svc.Render(context.Background(), instance, block.Settings{"title": "Other"}); err != nil {
		t.Fatalf("override render: %v", err)
	}
	if renderer.executes.Load() != 2 {
		t.Fatalf("different settings must miss the cache")
	}

	if err := cache.Invalidate(context.Background(), mem, InvalidationPrefix("rss", "b1")); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := svc.Render(context.Background(), instance, nil); err != nil {
		t.Fatalf("render after invalidate: %v", err)
	}
	if renderer.executes.Load() != 3 {
		t.Fatalf("expected cache miss after invalidation")
	}
}

func TestRenderSkipsCacheWithoutTTL(t *testing.T) {
	renderer := &stubRenderer{}
	mem := cache.NewMemory()
	svc := newTestService(t, Dependencies{Cache: mem}, map[block.Type]block.Descriptor{
		"rss": {Renderer: renderer},
	})
	instance := block.Static{ID: "b1", Type: "rss", Enabled: true}

	for range 2 {
		if _, err := svc.Render(context.Background(), instance, nil); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if renderer.executes.Load() != 2 || mem.Len() != 0 {
		t.Fatalf("expected no caching, executes=%d entries=%d", renderer.executes.Load(), mem.Len())
	}
}

func TestRenderUsesRendererCacheKeys(t *testing.T) {
	renderer := &keyedRenderer{}
	cfg := config.Defaults()
	cfg.Blocks = map[string]config.BlockConfig{"rss": {CacheTTL: time.Minute}}
	svc := newTestService(t, Dependencies{Cache: cache.NewMemory(), Deployment: cfg}, map[block.Type]block.Descriptor{
		"rss": {Renderer: renderer},
	})
	instance := block.Static{ID: "b1", Type: "rss", Enabled: true, Options: block.Settings{"url": "http://example.com/feed"}}

	if _, err := svc.Render(context.Background(), instance, block.Settings{"title": "A"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := svc.Render(context.Background(), instance, block.Settings{"title": "B"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !second.Cached || renderer.executes.Load() != 1 {
		t.Fatalf("expected cache keys to ignore title, executes=%d", renderer.executes.Load())
	}
}

func TestExplainUsesDescriptorAndDeployment(t *testing.T) {
	svc := newTestService(t, Dependencies{
		Deployment: staticDeployment{"rss": {"limit": 5}},
	}, map[block.Type]block.Descriptor{
		"rss": {Defaults: block.Settings{"title": "Feed items", "limit": 10}, Renderer: &stubRenderer{}},
	})

	explanation, err := svc.Explain(block.Static{Type: "rss", Enabled: true, Options: block.Settings{"url": "x"}}, block.Settings{"title": "Mine"})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	cases := map[string]string{
		"title": settings.ScopeOverrides,
		"limit": settings.ScopeDeployment,
		"url":   settings.ScopeInstance,
	}
	for key, want := range cases {
		if got := explanation.Source(key); got != want {
			t.Fatalf("%s: expected %s, got %s", key, want, got)
		}
	}

	if _, err := svc.Explain(block.Static{Type: "nope"}, nil); !errors.Is(err, block.ErrUnknownType) {
		t.Fatalf("expected unknown type, got %v", err)
	}
}
