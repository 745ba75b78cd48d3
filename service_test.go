package disorder

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofhir/disorder/cache"
	"github.com/gofhir/disorder/pkg/logger"
)

func TestService_CachesResolvedNames(t *testing.T) {
	client := &mockClient{body: []byte(`{"name": "Tuberous Sclerosis"}`)}
	svc := newTestService(client)

	first := svc.NewRef("190685", "", nil)
	resolve(t, first, nil)
	second := svc.NewRef("MIM:190685", "", nil)
	resolve(t, second, nil)

	if calls := client.calls(); len(calls) != 1 {
		t.Errorf("expected one request for the same code, got %v", calls)
	}
	if second.Name() != "Tuberous Sclerosis" {
		t.Errorf("cached Name() = %q", second.Name())
	}
	if hits := svc.Metrics().CacheHits(); hits != 1 {
		t.Errorf("CacheHits() = %d; want 1", hits)
	}
	if e, ok := svc.Cache().Get("MIM:190685"); !ok || !e.Found {
		t.Errorf("cache entry = %+v, %v", e, ok)
	}
}

func TestService_CachesMissingNames(t *testing.T) {
	client := &mockClient{body: []byte(`{}`)}
	svc := newTestService(client)

	resolve(t, svc.NewRef("MIM:1", "", nil), nil)
	r := svc.NewRef("MIM:1", "", nil)
	resolve(t, r, nil)

	if calls := client.calls(); len(calls) != 1 {
		t.Errorf("expected one request, got %v", calls)
	}
	if r.Name() != "MIM:1" || r.State() != StateResolved {
		t.Errorf("cached no-name entry: name=%q state=%v", r.Name(), r.State())
	}
}

func TestService_WithoutCache(t *testing.T) {
	client := &mockClient{body: []byte(`{"name": "Tuberous Sclerosis"}`)}
	svc := newTestService(client, WithoutCache())

	if svc.Cache() != nil {
		t.Fatal("Cache() should be nil when disabled")
	}
	resolve(t, svc.NewRef("MIM:190685", "", nil), nil)
	resolve(t, svc.NewRef("MIM:190685", "", nil), nil)

	if calls := client.calls(); len(calls) != 2 {
		t.Errorf("expected two requests without cache, got %v", calls)
	}
}

func TestService_CacheTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	shared := cache.New[Code, CacheEntry](10, cache.WithTTL(time.Minute), cache.WithClock(func() time.Time { return now }))
	client := &mockClient{body: []byte(`{"name": "Tuberous Sclerosis"}`)}
	svc := newTestService(client, WithCache(shared))

	resolve(t, svc.NewRef("MIM:190685", "", nil), nil)
	now = now.Add(2 * time.Minute)
	resolve(t, svc.NewRef("MIM:190685", "", nil), nil)

	if calls := client.calls(); len(calls) != 2 {
		t.Errorf("expired entry should trigger a new request, got %v", calls)
	}
}

func TestService_SharedCacheAcrossServices(t *testing.T) {
	shared := cache.New[Code, CacheEntry](10)
	a := &mockClient{body: []byte(`{"name": "Tuberous Sclerosis"}`)}
	b := &mockClient{body: []byte(`{"name": "unused"}`)}

	resolve(t, newTestService(a, WithCache(shared)).NewRef("MIM:190685", "", nil), nil)
	r := newTestService(b, WithCache(shared)).NewRef("MIM:190685", "", nil)
	resolve(t, r, nil)

	if len(b.calls()) != 0 {
		t.Errorf("second service should use shared cache, got %v", b.calls())
	}
	if r.Name() != "Tuberous Sclerosis" {
		t.Errorf("Name() = %q", r.Name())
	}
}

func TestService_ConcurrentLookupsShareRequest(t *testing.T) {
	client := &mockClient{body: []byte(`{"name": "Cystic Fibrosis"}`), block: make(chan struct{})}
	svc := newTestService(client)

	a := svc.NewRef("MIM:219700", "", nil)
	b := svc.NewRef("219700", "", nil)
	doneA := a.Resolve(context.Background(), nil)
	client.waitForCalls(t, 1)
	doneB := b.Resolve(context.Background(), nil)

	// Give b's goroutine time to join the request in flight.
	time.Sleep(20 * time.Millisecond)
	close(client.block)
	<-doneA
	<-doneB

	if calls := client.calls(); len(calls) != 1 {
		t.Errorf("expected one shared request, got %v", calls)
	}
	if a.Name() != "Cystic Fibrosis" || b.Name() != "Cystic Fibrosis" {
		t.Errorf("names = %q, %q", a.Name(), b.Name())
	}
}

func TestService_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	client := &mockClient{body: []byte(`{"name": "Down Syndrome"}`), block: make(chan struct{})}
	svc := newTestService(client)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	a := svc.NewRef("MIM:190685", "", nil)
	b := svc.NewRef("190685", "", nil)
	doneA := a.Resolve(ctxA, nil)
	client.waitForCalls(t, 1)
	doneB := b.Resolve(context.Background(), nil)

	// Give b's goroutine time to join the request in flight.
	time.Sleep(20 * time.Millisecond)
	cancelA()
	select {
	case <-doneA:
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not settle")
	}
	if a.State() != StateFailed || !errors.Is(a.Err(), context.Canceled) {
		t.Errorf("a: state=%v err=%v; want failed with context.Canceled", a.State(), a.Err())
	}

	close(client.block)
	select {
	case <-doneB:
	case <-time.After(2 * time.Second):
		t.Fatal("shared lookup did not settle")
	}
	if b.State() != StateResolved || b.Name() != "Down Syndrome" || b.Err() != nil {
		t.Errorf("b: state=%v name=%q err=%v; want resolved Down Syndrome", b.State(), b.Name(), b.Err())
	}
	if calls := client.calls(); len(calls) != 1 {
		t.Errorf("expected one shared request, got %v", calls)
	}
}

func TestService_NoClient(t *testing.T) {
	svc := NewService(nil, nil, WithLogger(logger.Discard()))

	r := svc.NewRef("MIM:190685", "", nil)
	resolve(t, r, nil)

	if r.State() != StateFailed || r.Name() != "MIM:190685" {
		t.Errorf("state=%v name=%q; want failed, id", r.State(), r.Name())
	}
	if !errors.Is(r.Err(), ErrNoClient) || !errors.Is(r.Err(), ErrTransport) {
		t.Errorf("Err() = %v; want ErrNoClient wrapped in a transport error", r.Err())
	}
}

func TestService_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelWarn)
	svc := NewService(testEndpoint, &mockClient{body: []byte(`not json`)}, WithLogger(log))

	resolve(t, svc.NewRef("MIM:190685", "", nil), nil)

	out := buf.String()
	if !strings.Contains(out, "[load disorder] parse error") || !strings.Contains(out, "disorder=MIM:190685") {
		t.Errorf("log output = %q", out)
	}
}

func TestService_CustomDecoder(t *testing.T) {
	dec := DecoderFunc(func(body []byte) (*Record, error) {
		name := "decoded:" + string(body)
		return &Record{Name: &name}, nil
	})
	svc := newTestService(&mockClient{body: []byte("x")}, WithDecoder(dec))

	r := svc.NewRef("MIM:1", "", nil)
	resolve(t, r, nil)
	if r.Name() != "decoded:x" {
		t.Errorf("Name() = %q", r.Name())
	}
}

func TestService_SharedMetrics(t *testing.T) {
	m := NewMetrics()
	svc := newTestService(&mockClient{body: []byte(`{"name": "A"}`)}, WithMetrics(m))

	resolve(t, svc.NewRef("MIM:1", "", nil), nil)
	if svc.Metrics() != m {
		t.Fatal("Metrics() should return the injected instance")
	}
	if m.Outcomes(OutcomeResolved) != 1 {
		t.Errorf("resolved = %d; want 1", m.Outcomes(OutcomeResolved))
	}
}
