package disorder

import (
	"context"
	"sync"

	"github.com/gofhir/disorder/pkg/logger"
)

// Placeholder is the display name of a Ref whose name is not known yet.
const Placeholder = "loading..."

// State is the resolution state of a Ref.
type State int

// Resolution states.
const (
	StateUnresolved State = iota
	StateLoading
	StateResolved
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateLoading:
		return "loading"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Ref is a reference to a genetic disorder: the caller's identifier and
// the best display name known for it. Name never fails; when resolution
// is impossible it falls back to the identifier.
//
// A Ref is safe for concurrent use. Refs must be created with
// Service.NewRef; the zero value has no service and reports ErrNoClient.
type Ref struct {
	svc *Service
	id  string

	mu       sync.Mutex
	name     string
	state    State
	err      error
	inflight *pending
}

// pending is the lookup currently in flight for a Ref.
type pending struct {
	done      chan struct{}
	callbacks []func(*Ref)
}

var closedDone = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// detached serves Refs that were not created by a Service.
var detached = sync.OnceValue(func() *Service {
	return NewService(nil, nil, WithLogger(logger.Discard()), WithoutCache())
})

func (r *Ref) service() *Service {
	if r.svc == nil {
		return detached()
	}
	return r.svc
}

// ID returns the identifier the Ref was created with.
func (r *Ref) ID() string {
	return r.id
}

// Name returns the current display name.
func (r *Ref) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// State returns the current resolution state.
func (r *Ref) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the failure recorded by the last resolution, wrapping
// ErrParse or ErrTransport. It is nil unless the state is StateFailed.
func (r *Ref) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Resolve looks the display name up without blocking. The returned channel
// is closed once the outcome is applied and every completion callback has
// returned.
//
// Free-text identifiers resolve to themselves without a lookup; whether
// onComplete runs in that case depends on WithFreeTextNotify. For coded
// identifiers onComplete runs exactly once, on another goroutine, after
// Name and State have settled. A call made while a lookup is in flight,
// or while its callbacks are still running, issues no new request: its
// onComplete joins the pending lookup. A callback must not block on the
// channel of a Resolve it calls itself.
//
// Errors never escape. A failed lookup leaves Name equal to ID and is
// reported through Err and the service logger.
func (r *Ref) Resolve(ctx context.Context, onComplete func(*Ref)) <-chan struct{} {
	r.mu.Lock()

	if p := r.inflight; p != nil {
		if onComplete != nil {
			p.callbacks = append(p.callbacks, onComplete)
		}
		r.mu.Unlock()
		r.service().metrics.RecordJoined()
		r.service().log.With("disorder", r.id).Debug("lookup already in flight")
		return p.done
	}

	code, coded := Normalize(r.id)
	if !coded {
		r.name = r.id
		r.state = StateResolved
		r.err = nil
		r.mu.Unlock()
		r.service().metrics.RecordFreeText()
		if onComplete != nil && r.service().opts.FreeText == NotifyImmediately {
			onComplete(r)
		}
		return closedDone
	}

	p := &pending{done: make(chan struct{})}
	if onComplete != nil {
		p.callbacks = append(p.callbacks, onComplete)
	}
	r.inflight = p
	r.state = StateLoading
	r.err = nil
	r.mu.Unlock()

	go r.settle(ctx, code, p)
	return p.done
}

// settle runs the lookup and applies its outcome before notifying.
func (r *Ref) settle(ctx context.Context, code Code, p *pending) {
	defer close(p.done)

	entry, err := r.service().lookup(ctx, code)

	r.mu.Lock()
	r.name = r.id
	switch {
	case err != nil:
		r.state = StateFailed
		r.err = err
	case entry.Found:
		r.name = entry.Name
		r.state = StateResolved
	default:
		r.state = StateResolved
	}
	// Calls that join while callbacks run see this outcome too; the lookup
	// stays in flight until the last callback returns.
	for {
		callbacks := p.callbacks
		p.callbacks = nil
		if len(callbacks) == 0 {
			r.inflight = nil
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()
		for _, cb := range callbacks {
			cb(r)
		}
		r.mu.Lock()
	}
}

// Wait blocks until the Ref has no lookup in flight, including its
// completion callbacks, or ctx is done.
func (r *Ref) Wait(ctx context.Context) error {
	r.mu.Lock()
	p := r.inflight
	r.mu.Unlock()
	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
