// Package facter exposes the facts reported by the external facter
// executable through a cached, dictionary-style accessor.
//
// A Facter runs facter on demand, parses its JSON output (falling back to
// the plain "name => value" format for tools that cannot produce JSON),
// and keeps the most recent complete result until it is refreshed:
//
//	f, err := facter.New(ctx, facter.Options{})
//	arch, err := f.Lookup(ctx, "architecture")
//	osInfo, err := f.Get(ctx, "os", facter.Null(), facter.WithoutCache())
//
// Every cache miss or bypass starts a new facter process. A Facter is safe
// for concurrent use.
package facter

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rshade/facter-lookup/internal/logging"
)

// Facter is the accessor over facter output.
type Facter struct {
	cfg    Config
	runner CommandRunner
	store  *store
}

// New resolves opts into an immutable Config and returns a Facter. It does
// not run facter.
func New(ctx context.Context, opts Options) (*Facter, error) {
	cfg, err := opts.resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid facter options: %w", err)
	}

	for _, note := range cfg.Deprecations {
		logging.FromContext(ctx).Warn().
			Ctx(ctx).
			Str("component", "facter").
			Str("operation", "new").
			Msg(note)
	}

	runner := opts.Runner
	if runner == nil {
		runner = Runner
	}
	return &Facter{
		cfg:    cfg,
		runner: runner,
		store:  newStore(cfg, runner),
	}, nil
}

// Config returns the effective configuration.
func (f *Facter) Config() Config {
	cfg := f.cfg
	cfg.Deprecations = slices.Clone(f.cfg.Deprecations)
	return cfg
}

// LookupOption adjusts a single Lookup or Get call.
type LookupOption func(*lookupOptions)

type lookupOptions struct {
	useCache bool
}

// WithCache sets whether the cached facts may be used. The default is true.
func WithCache(use bool) LookupOption {
	return func(o *lookupOptions) { o.useCache = use }
}

// WithoutCache forces a fresh facter run for this call.
func WithoutCache() LookupOption {
	return WithCache(false)
}

func applyLookupOptions(opts []LookupOption) lookupOptions {
	o := lookupOptions{useCache: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Lookup returns the value of the named fact. It fails with *NotFoundError
// when the fact is absent, including after legacy aliases were applied.
func (f *Facter) Lookup(ctx context.Context, name string, opts ...LookupOption) (Value, error) {
	o := applyLookupOptions(opts)
	snap, err := f.store.mapping(ctx, o.useCache)
	if err != nil {
		return Value{}, err
	}
	v, ok := snap.Facts[name]
	if !ok {
		return Value{}, &NotFoundError{Name: name}
	}
	return v, nil
}

// Get is Lookup returning def instead of failing when the fact is absent.
// Invocation, execution and parse errors are still returned.
func (f *Facter) Get(ctx context.Context, name string, def Value, opts ...LookupOption) (Value, error) {
	v, err := f.Lookup(ctx, name, opts...)
	if IsNotFound(err) {
		return def, nil
	}
	return v, err
}

// Fact is the indexed form of Lookup, always allowed to use the cache.
func (f *Facter) Fact(ctx context.Context, name string) (Value, error) {
	return f.Lookup(ctx, name)
}

// All returns a copy of every fact, using the cache when possible.
func (f *Facter) All(ctx context.Context) (Mapping, error) {
	snap, err := f.store.mapping(ctx, true)
	if err != nil {
		return nil, err
	}
	return snap.Facts.Clone(), nil
}

// Keys returns the sorted fact names.
func (f *Facter) Keys(ctx context.Context) ([]string, error) {
	snap, err := f.store.mapping(ctx, true)
	if err != nil {
		return nil, err
	}
	return snap.Facts.Keys(), nil
}

// JSON returns all facts encoded as a JSON object.
func (f *Facter) JSON(ctx context.Context) ([]byte, error) {
	snap, err := f.store.mapping(ctx, true)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snap.Facts)
}

// Query runs facter restricted to names and returns what it reported. It
// never reads or writes the cache.
func (f *Facter) Query(ctx context.Context, names ...string) (Mapping, error) {
	facts, _, err := f.store.invoker.acquire(ctx, names...)
	if err != nil {
		return nil, err
	}
	if f.cfg.Legacy {
		flattenLegacy(facts, f.cfg.legacyAliases)
	}
	return facts, nil
}

// Refresh runs facter and replaces the cached facts.
func (f *Facter) Refresh(ctx context.Context) error {
	_, err := f.store.refresh(ctx)
	return err
}

// ClearCache drops the cached facts; the next cached lookup runs facter.
func (f *Facter) ClearCache() {
	f.store.clear()
}

// HasCache reports whether a cached snapshot is held.
func (f *Facter) HasCache() bool {
	_, ok := f.store.current()
	return ok
}

// Snapshot returns a copy of the cached snapshot, if any.
func (f *Facter) Snapshot() (Snapshot, bool) {
	snap, ok := f.store.current()
	if !ok {
		return Snapshot{}, false
	}
	out := *snap
	out.Facts = snap.Facts.Clone()
	return out, true
}

func (f *Facter) String() string {
	return fmt.Sprintf("<Facter format=%s cache_enabled=%t cache_active=%t>",
		f.cfg.Format, f.cfg.CacheEnabled, f.HasCache())
}

var (
	defaultOnce   sync.Once //nolint:gochecknoglobals // Lazily built default instance.
	defaultFacter *Facter   //nolint:gochecknoglobals // See defaultOnce.
	errDefault    error     //nolint:gochecknoglobals // See defaultOnce.
)

// GetFact looks name up on a process-wide Facter built with default
// Options, returning def when the fact is absent.
func GetFact(ctx context.Context, name string, def Value) (Value, error) {
	f, err := defaultInstance()
	if err != nil {
		return Value{}, err
	}
	return f.Get(ctx, name, def)
}

// defaultInstance builds the shared Facter once. It does not depend on any
// caller's context.
func defaultInstance() (*Facter, error) {
	defaultOnce.Do(func() {
		defaultFacter, errDefault = New(context.Background(), Options{})
	})
	return defaultFacter, errDefault
}
