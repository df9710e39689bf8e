package docview

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
)

// callbackSet holds the registered callbacks of a token and fires them once.
type callbackSet struct {
	mu        sync.RWMutex
	changed   atomic.Bool
	callbacks []func()
}

func (s *callbackSet) register(callback func()) func() {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, callback)
	index := len(s.callbacks) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if index < len(s.callbacks) {
			// nil instead of removal keeps other indexes valid
			s.callbacks[index] = nil
		}
	}
}

func (s *callbackSet) fire() {
	if s.changed.Swap(true) {
		return
	}

	s.mu.RLock()
	callbacks := make([]func(), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// CallbackChangeToken is signalled by stores with native change events
// (local, memory).
type CallbackChangeToken struct {
	set callbackSet
}

// NewCallbackChangeToken creates an unsignalled token.
func NewCallbackChangeToken() *CallbackChangeToken {
	return &CallbackChangeToken{}
}

func (t *CallbackChangeToken) HasChanged() bool {
	return t.set.changed.Load()
}

func (t *CallbackChangeToken) ActiveChangeCallbacks() bool {
	return true
}

func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	return t.set.register(callback)
}

// SignalChange marks the token as changed and runs the callbacks.
// Only the first call has an effect.
func (t *CallbackChangeToken) SignalChange() {
	t.set.fire()
}

// PollingConfig configures a polling change token.
type PollingConfig struct {
	// Interval between checks (default: 5 seconds)
	Interval time.Duration
	// CheckFunc returns true once a change is detected
	CheckFunc func() bool
}

// PollingChangeToken serves stores without native events, such as S3.
// The polling goroutine stops when the token fires, when the context is
// cancelled, or when Stop is called.
type PollingChangeToken struct {
	set       callbackSet
	cancel    context.CancelFunc
	checkFunc func() bool
	interval  time.Duration
	stopped   atomic.Bool
}

// NewPollingChangeToken starts polling config.CheckFunc every
// config.Interval. Cancel ctx or call Stop when the token is no longer needed.
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	token := NewPollingChangeToken(ctx, PollingConfig{CheckFunc: changed})
func NewPollingChangeToken(ctx context.Context, config PollingConfig) *PollingChangeToken {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &PollingChangeToken{
		checkFunc: config.CheckFunc,
		interval:  config.Interval,
		cancel:    cancel,
	}

	// Last-resort cleanup for tokens dropped without Stop.
	runtime.SetFinalizer(t, func(token *PollingChangeToken) {
		token.Stop()
	})

	go t.poll(ctx)

	return t
}

func (t *PollingChangeToken) poll(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	defer t.stopped.Store(true)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.checkFunc != nil && t.checkFunc() {
				t.set.fire()
				return
			}
		}
	}
}

func (t *PollingChangeToken) HasChanged() bool {
	return t.set.changed.Load()
}

func (t *PollingChangeToken) ActiveChangeCallbacks() bool {
	return true
}

func (t *PollingChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	return t.set.register(callback)
}

// Stop ends polling. Safe to call more than once.
func (t *PollingChangeToken) Stop() {
	if t.stopped.Swap(true) {
		return
	}
	if t.cancel != nil {
		t.cancel()
	}
}

// CompositeChangeToken fires when any of its tokens fires
type CompositeChangeToken struct {
	tokens []ChangeToken
}

// NewCompositeChangeToken combines tokens into one
func NewCompositeChangeToken(tokens ...ChangeToken) *CompositeChangeToken {
	return &CompositeChangeToken{tokens: tokens}
}

func (c *CompositeChangeToken) HasChanged() bool {
	for _, t := range c.tokens {
		if t.HasChanged() {
			return true
		}
	}
	return false
}

// ActiveChangeCallbacks is true only when every token raises callbacks
func (c *CompositeChangeToken) ActiveChangeCallbacks() bool {
	for _, t := range c.tokens {
		if !t.ActiveChangeCallbacks() {
			return false
		}
	}
	return len(c.tokens) > 0
}

func (c *CompositeChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	unregisters := make([]func(), 0, len(c.tokens))
	for _, t := range c.tokens {
		unregisters = append(unregisters, t.RegisterChangeCallback(callback))
	}
	return func() {
		for _, u := range unregisters {
			u()
		}
	}
}

// Stop stops every token that polls
func (c *CompositeChangeToken) Stop() {
	for _, t := range c.tokens {
		if stopper, ok := t.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}
}

// OnChange keeps watching across single-use tokens: each time the token from
// tokenProducer fires, changeAction runs and a fresh token is requested.
// Watching ends when tokenProducer fails or the returned cancel is called.
//
//	cancel := docview.OnChange(
//	    func() (docview.ChangeToken, error) {
//	        return store.(docview.CanWatch).Watch(ctx, "**/*.pdf")
//	    },
//	    func() { log.Println("documents changed") },
//	)
//	defer cancel()
func OnChange(tokenProducer func() (ChangeToken, error), changeAction func()) (cancel func()) {
	ctx, cancelFunc := context.WithCancel(context.Background())

	go func() {
		for {
			token, err := tokenProducer()
			if err != nil {
				return
			}

			done := make(chan struct{})
			var once sync.Once
			unregister := token.RegisterChangeCallback(func() {
				once.Do(func() { close(done) })
			})
			// a token that fired before registration never calls back
			if token.HasChanged() {
				once.Do(func() { close(done) })
			}

			select {
			case <-ctx.Done():
				unregister()
				if stopper, ok := token.(interface{ Stop() }); ok {
					stopper.Stop()
				}
				return
			case <-done:
				unregister()
				changeAction()
			}
		}
	}()

	return cancelFunc
}

// WatchByListing watches store by listing it recursively every interval and
// comparing the size and modification time of the files matching filter.
// filter is a glob over store paths in which * stays within a directory and
// ** crosses them. Stores without native events use it to implement
// CanWatch. Cancel ctx to stop polling.
func WatchByListing(ctx context.Context, store FileReader, filter string, interval time.Duration) (ChangeToken, error) {
	pattern, err := glob.Compile(strings.TrimPrefix(filter, "/"), '/')
	if err != nil {
		return nil, WrapPathErr("watch", filter, err)
	}

	initial, err := listingSnapshot(ctx, store, pattern)
	if err != nil {
		return nil, WrapPathErr("watch", filter, err)
	}

	return NewPollingChangeToken(ctx, PollingConfig{
		Interval: interval,
		CheckFunc: func() bool {
			current, err := listingSnapshot(ctx, store, pattern)
			if err != nil {
				return false
			}
			return !snapshotsEqual(initial, current)
		},
	}), nil
}

type fileState struct {
	size    int64
	modTime time.Time
}

func listingSnapshot(ctx context.Context, store FileReader, pattern glob.Glob) (map[string]fileState, error) {
	entries, err := store.ListContents(ctx, "", true)
	if err != nil {
		return nil, err
	}

	state := make(map[string]fileState)
	for _, e := range entries {
		if e.IsDir || !pattern.Match(strings.TrimPrefix(e.Path, "/")) {
			continue
		}
		state[e.Path] = fileState{size: e.Size, modTime: e.ModTime}
	}
	return state, nil
}

func snapshotsEqual(a, b map[string]fileState) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || v.size != bv.size || !v.modTime.Equal(bv.modTime) {
			return false
		}
	}
	return true
}
