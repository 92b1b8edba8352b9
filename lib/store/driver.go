package store

import (
	"context"
	"github.com/ValentinKolb/tKV/lib/tree"
	"sync"
)

// Callback is the optional completion callback of the Driver operations.
// It is called exactly once with the error (nil on success) and the result of the operation.
type Callback[T any] func(err error, result T)

// Driver wraps a Store with readiness bookkeeping and completion callbacks.
// Operations fail with ErrNotInitialized until InitStorage succeeded. If the support check
// failed, every operation fails with the error of the support check.
type Driver struct {
	root tree.Directory
	o    options
	opts []Option

	mu      sync.RWMutex
	store   *Store
	initErr error
}

// NewDriver creates a driver for the tree root. The options are used for every InitStorage call.
func NewDriver(root tree.Directory, opts ...Option) *Driver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver{root: root, o: o, opts: opts}
}

// complete is the single exit of every operation: it calls the callbacks and returns the result
func complete[T any](result T, err error, callbacks []Callback[T]) (T, error) {
	for _, cb := range callbacks {
		if cb != nil {
			cb(err, result)
		}
	}
	return result, err
}

// ready returns the initialized store
func (d *Driver) ready() (*Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.initErr != nil {
		return nil, d.initErr
	}
	if d.store == nil {
		return nil, ErrNotInitialized
	}
	return d.store, nil
}

// SupportCheck reports whether the tree storage can be used. Trees implementing tree.Pinger are pinged,
// all other trees are assumed to be available.
func (d *Driver) SupportCheck(ctx context.Context) (bool, error) {
	if d.root == nil {
		log.Errorf("tree storage is not available: no root")
		return false, WrapError(RetCUnavailable, "tree storage is not available", tree.ErrUnavailable)
	}
	if p, ok := d.root.(tree.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			log.Errorf("tree storage is not available: %v", err)
			return false, WrapError(RetCUnavailable, "tree storage is not available", err)
		}
	}
	return true, nil
}

// InitStorage runs the support check and opens the store for cfg (merged with the defaults).
// It can be called again to switch the driver to another scope. If that fails, the previous
// scope is closed and every operation returns the error until InitStorage succeeds.
func (d *Driver) InitStorage(ctx context.Context, cfg Config, cb ...Callback[Config]) (Config, error) {
	if _, err := d.SupportCheck(ctx); err != nil {
		d.mu.Lock()
		d.initErr = err
		d.mu.Unlock()
		return complete(Config{}, err, cb)
	}

	s, err := Open(ctx, d.root, cfg, d.opts...)
	if err != nil {
		d.mu.Lock()
		d.store, d.initErr = nil, err
		d.mu.Unlock()
		return complete(Config{}, err, cb)
	}

	d.mu.Lock()
	d.store, d.initErr = s, nil
	d.mu.Unlock()
	return complete(s.Config(), nil, cb)
}

// Store returns the initialized store
func (d *Driver) Store() (IStore, error) {
	s, err := d.ready()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// --------------------------------------------------------------------------
// Operations (docu see store/interface.go)
// --------------------------------------------------------------------------

func (d *Driver) Iterate(ctx context.Context, f IteratorFunc, cb ...Callback[any]) (any, error) {
	s, err := d.ready()
	if err != nil {
		return complete[any](nil, err, cb)
	}
	res, err := s.Iterate(ctx, f)
	return complete(res, err, cb)
}

func (d *Driver) GetItem(ctx context.Context, key any, cb ...Callback[any]) (any, error) {
	s, err := d.ready()
	if err != nil {
		return complete[any](nil, err, cb)
	}
	value, err := s.GetItem(ctx, key)
	return complete(value, err, cb)
}

func (d *Driver) SetItem(ctx context.Context, key any, value any, cb ...Callback[any]) (any, error) {
	s, err := d.ready()
	if err != nil {
		return complete[any](nil, err, cb)
	}
	written, err := s.SetItem(ctx, key, value)
	return complete(written, err, cb)
}

func (d *Driver) RemoveItem(ctx context.Context, key any, cb ...Callback[struct{}]) error {
	s, err := d.ready()
	if err == nil {
		err = s.RemoveItem(ctx, key)
	}
	_, err = complete(struct{}{}, err, cb)
	return err
}

func (d *Driver) Clear(ctx context.Context, cb ...Callback[struct{}]) error {
	s, err := d.ready()
	if err == nil {
		err = s.Clear(ctx)
	}
	_, err = complete(struct{}{}, err, cb)
	return err
}

func (d *Driver) Length(ctx context.Context, cb ...Callback[int]) (int, error) {
	s, err := d.ready()
	if err != nil {
		return complete(0, err, cb)
	}
	n, err := s.Length(ctx)
	return complete(n, err, cb)
}

// Key returns the key of the n-th entry, the callback receives nil if there is no such entry
func (d *Driver) Key(ctx context.Context, n int, cb ...Callback[*string]) (*string, error) {
	s, err := d.ready()
	if err != nil {
		return complete[*string](nil, err, cb)
	}
	key, ok, err := s.Key(ctx, n)
	if err != nil || !ok {
		return complete[*string](nil, err, cb)
	}
	return complete(&key, nil, cb)
}

func (d *Driver) Keys(ctx context.Context, cb ...Callback[[]string]) ([]string, error) {
	s, err := d.ready()
	if err != nil {
		return complete[[]string](nil, err, cb)
	}
	keys, err := s.Keys(ctx)
	return complete(keys, err, cb)
}

// DropInstance works without a successful InitStorage, the fallback configuration is then the default configuration
func (d *Driver) DropInstance(ctx context.Context, opts Config, cb ...Callback[string]) (string, error) {
	d.mu.RLock()
	s, initErr := d.store, d.initErr
	d.mu.RUnlock()

	if initErr != nil {
		return complete("", initErr, cb)
	}
	if d.root == nil {
		return complete("", error(ErrUnavailable), cb)
	}
	current := d.o.defaults
	if s != nil {
		current = s.Config()
	}
	path, err := dropInstance(ctx, d.root, opts, current, d.o.defaults)
	return complete(path, err, cb)
}

// Config returns the configuration of the initialized store (the defaults before InitStorage)
func (d *Driver) Config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.store != nil {
		return d.store.Config()
	}
	return d.o.defaults
}
