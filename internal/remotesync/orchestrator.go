package remotesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/cache"
	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/remote"
	"github.com/MrSnakeDoc/toomanytabs/internal/scheduler"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
)

// DefaultRequestTimeout bounds every remote call when none is configured.
const DefaultRequestTimeout = 10 * time.Second

var (
	ErrNotInitialized     = errors.New("sync orchestrator is not initialized")
	ErrAlreadyInitialized = errors.New("sync orchestrator is already initialized")
	ErrClosed             = errors.New("sync orchestrator is closed")
	// ErrReconfigureUnsupported is returned when the document store cannot
	// swap credentials at runtime.
	ErrReconfigureUnsupported = errors.New("document store does not accept new credentials")
)

// DocumentStore is the remote side of the sync: whole-document reads and
// writes gated by a version token. *remote.Client implements it.
type DocumentStore interface {
	Probe(ctx context.Context) error
	Fetch(ctx context.Context, name string) (remote.Document, error)
	Write(ctx context.Context, name string, content []byte, token string) (string, error)
}

// CredentialSetter is implemented by document stores whose credentials can
// be replaced without rebuilding them.
type CredentialSetter interface {
	SetCredentials(creds remote.Credentials) error
}

// Config is everything the orchestrator needs besides its collaborators.
type Config struct {
	// RequestTimeout bounds each remote call. A timed out call is a
	// network failure.
	RequestTimeout time.Duration
	// SyncInterval is the background push period. Zero picks the
	// scheduler default, a negative value disables the background push.
	SyncInterval time.Duration
	Logger       logger.Logger
	// Now is the clock used for sync timestamps.
	Now func() time.Time
}

// Orchestrator keeps a state.Store mirrored to a DocumentStore, falling
// back to a cache.Cache when the remote side is unavailable.
type Orchestrator struct {
	store  *state.Store
	remote DocumentStore
	cache  cache.Cache
	logger logger.Logger
	now    func() time.Time

	requestTimeout time.Duration
	scheduler      *scheduler.PushScheduler

	mu         sync.Mutex
	status     Status
	ready      bool
	closed     bool
	pushing    bool
	pending    bool
	authFailed bool
	needsProbe bool
	// loaded is false until the remote documents have been read once.
	// fallbackRevision is the store revision right after the startup
	// fallback; a later revision means local edits were made offline.
	loaded           bool
	fallbackRevision uint64
	subs       map[chan Status]struct{}

	pushes sync.WaitGroup
}

// New wires an orchestrator. It does no I/O until Initialize.
func New(cfg Config, store *state.Store, docs DocumentStore, c cache.Cache) *Orchestrator {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	o := &Orchestrator{
		store:          store,
		remote:         docs,
		cache:          c,
		logger:         log,
		now:            now,
		requestTimeout: timeout,
		status: Status{
			State:    Disconnected,
			Versions: map[string]string{},
		},
		subs: make(map[chan Status]struct{}),
	}
	if cfg.SyncInterval >= 0 {
		o.scheduler = scheduler.NewPushScheduler(func() { o.RequestPush(TriggerTimer) }, log, cfg.SyncInterval)
	}
	return o
}

// Store returns the state store the orchestrator mirrors.
func (o *Orchestrator) Store() *state.Store { return o.store }

// Initialize runs the Connecting phase once: probe, then load the three
// documents, or fall back to the cache when the remote side fails. Failures
// end up in the status, not in the returned error, which only reports
// misuse. The returned channel carries every later status change and is
// closed by Close.
func (o *Orchestrator) Initialize(ctx context.Context) (<-chan Status, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.status.State != Disconnected {
		o.mu.Unlock()
		return nil, ErrAlreadyInitialized
	}
	ch := o.subscribeLocked()
	o.setStateLocked(Connecting, "initialize")
	o.mu.Unlock()

	o.connect(ctx)

	o.mu.Lock()
	o.ready = true
	closed := o.closed
	o.mu.Unlock()

	if o.scheduler != nil && !closed {
		o.scheduler.Start(context.WithoutCancel(ctx))
	}
	return ch, nil
}

// Mutate applies op to the state store, requests a push and returns the
// resulting collections. An error from op leaves the store as op left it
// and requests nothing.
func (o *Orchestrator) Mutate(op func(*state.Store) error) (domain.Snapshot, error) {
	o.mu.Lock()
	ready, closed := o.ready, o.closed
	o.mu.Unlock()
	if closed {
		return domain.Snapshot{}, ErrClosed
	}
	if !ready {
		return domain.Snapshot{}, ErrNotInitialized
	}

	if err := op(o.store); err != nil {
		return domain.Snapshot{}, err
	}
	snap := o.store.Snapshot()
	o.RequestPush(TriggerMutation)
	return snap, nil
}

// RequestPush starts a push cycle in the background and reports whether
// it did. While a push is in flight new requests are skipped; mutation
// and reconfigure requests are remembered so that exactly one more cycle
// runs after the current one, carrying every change made in between.
func (o *Orchestrator) RequestPush(trigger Trigger) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || !o.ready {
		return false
	}
	if o.pushing {
		if trigger.coalesces() {
			o.pending = true
		}
		o.logger.Debug("push skipped, one already in flight",
			logger.String("trigger", trigger.String()),
			logger.Bool("follow_up", o.pending))
		return false
	}

	o.pushing = true
	o.pushes.Add(1)
	go o.runPushes(trigger)
	return true
}

// SyncNow requests an immediate push. It reports false when one is
// already running.
func (o *Orchestrator) SyncNow() bool {
	return o.RequestPush(TriggerManual)
}

// Reconfigure installs new credentials, clears a terminal authentication
// failure and pushes again through a fresh probe.
func (o *Orchestrator) Reconfigure(creds remote.Credentials) error {
	setter, ok := o.remote.(CredentialSetter)
	if !ok {
		return ErrReconfigureUnsupported
	}
	if err := setter.SetCredentials(creds); err != nil {
		return fmt.Errorf("reconfigure: %w", err)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.authFailed = false
	o.needsProbe = true
	o.status.AuthFailed = false
	o.mu.Unlock()

	o.logger.Info("remote credentials replaced")
	o.RequestPush(TriggerReconfigure)
	return nil
}

// Ready reports whether Initialize has completed, whatever its outcome.
func (o *Orchestrator) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready && !o.closed
}

// Status returns the current status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status.clone()
}

// Subscribe returns a channel receiving every status change and a func
// to stop receiving. Slow subscribers only miss intermediate values; the
// latest status is always delivered.
func (o *Orchestrator) Subscribe() (<-chan Status, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch := o.subscribeLocked()
	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if _, ok := o.subs[ch]; ok {
			delete(o.subs, ch)
			close(ch)
		}
	}
}

func (o *Orchestrator) subscribeLocked() chan Status {
	ch := make(chan Status, 8)
	if o.closed {
		close(ch)
		return ch
	}
	o.subs[ch] = struct{}{}
	return ch
}

// Close stops the background push, waits for an in-flight push to finish
// and closes every status channel.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.pending = false
	o.mu.Unlock()

	if o.scheduler != nil {
		o.scheduler.Stop()
	}
	o.pushes.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.setStateLocked(Disconnected, "closed")
	for ch := range o.subs {
		delete(o.subs, ch)
		close(ch)
	}
	return nil
}

// setStateLocked records a transition and broadcasts the new status.
func (o *Orchestrator) setStateLocked(to State, cause string) {
	from := o.status.State
	o.status.State = to
	if from != to {
		o.logger.Info("sync state changed",
			logger.String("from", from.String()),
			logger.String("to", to.String()),
			logger.String("cause", cause))
	}
	o.broadcastLocked()
}

func (o *Orchestrator) broadcastLocked() {
	snap := o.status.clone()
	for ch := range o.subs {
		select {
		case ch <- snap:
		default:
			// drop the oldest queued value to make room for the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (o *Orchestrator) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, o.requestTimeout)
}

func (o *Orchestrator) saveCache(ctx context.Context, snap domain.Snapshot) {
	if o.cache == nil {
		return
	}
	ctx, cancel := o.callContext(ctx)
	defer cancel()
	if err := o.cache.Save(ctx, snap); err != nil {
		o.logger.Error("failed to write local cache", logger.Error(err))
	}
}
