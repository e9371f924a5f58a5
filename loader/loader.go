package loader

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/aurb/bank"
	"github.com/meigma/aurb/cache"
	"github.com/meigma/aurb/decode"
	"github.com/meigma/aurb/fetch"
	"github.com/meigma/aurb/manifest"
	"github.com/meigma/aurb/stream"
)

// Clip is a sprite region in seconds.
type Clip struct {
	Start float64
	End   float64
}

// entry is a committed cache entry. Fields other than refCount and buffer
// are immutable after commit.
type entry struct {
	kind     manifest.Kind
	mode     manifest.Mode
	src      string
	hint     string
	clips    map[string]manifest.Clip
	buffer   *decode.Buffer
	media    *stream.Media
	refCount int
}

// call is an in-flight load. Joiners add to refs; done is closed under the
// loader mutex once the entry is committed or the load failed.
type call struct {
	done   chan struct{}
	err    error
	refs   int
	cancel context.CancelFunc
}

// Stats is a snapshot of loader state.
type Stats struct {
	Entries  int
	Pending  int
	Waiters  int // callers blocked on pending loads
	Groups   int
	Catalogs int
	Fetches  int64
	Decodes  int64
}

// Loader caches decoded and streamable audio by id. It is safe for
// concurrent use.
type Loader struct {
	transport   fetch.Transport
	retrier     *fetch.Retrier
	rangeHTTP   bool
	schemes     map[string]fetch.Transport
	httpOpts    []fetch.HTTPOption
	decoder     decode.Decoder
	probe       Probe
	maxParallel int
	attempts    int
	backoff     time.Duration
	baseURL     string
	logger      *slog.Logger
	bankCache   cache.Cache
	streamOpts  []stream.Option

	mu         sync.Mutex
	entries    map[string]*entry
	pending    map[string]*call
	groups     map[string][]string
	groupBank  map[string]string
	catalogs   map[string]*bank.Catalog
	closed     bool

	lazy    singleflight.Group
	fetches atomic.Int64
	decodes atomic.Int64
}

// New creates a Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{
		decoder:     decode.PCM{},
		probe:       decode.CanDecode,
		maxParallel: DefaultMaxParallel,
		attempts:    fetch.DefaultAttempts,
		backoff:     fetch.DefaultBackoff,
		entries:     make(map[string]*entry),
		pending:     make(map[string]*call),
		groups:      make(map[string][]string),
		groupBank:   make(map[string]string),
		catalogs:    make(map[string]*bank.Catalog),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.transport == nil {
		mux := fetch.DefaultMux(l.httpOpts...)
		for scheme, t := range l.schemes {
			mux.Handle(scheme, t)
		}
		l.transport = mux
		l.rangeHTTP = true
	}
	l.retrier = fetch.NewRetrier(l.transport,
		fetch.WithAttempts(l.attempts),
		fetch.WithBackoff(l.backoff),
		fetch.WithRetryLogger(l.log()))
	return l
}

func (l *Loader) log() *slog.Logger {
	if l.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.logger
}

// Load caches asset and adds one reference to it.
//
// A cached id only gains a reference. A concurrent Load of an id already in
// flight waits for that load and shares its outcome. Otherwise the source is
// resolved and the asset's mode applied: preload fetches and decodes before
// returning, stream binds a media handle, lazy records the source.
//
// The shared work outlives any one caller and is canceled only when every
// caller waiting on it has given up.
func (l *Loader) Load(ctx context.Context, asset manifest.Asset) error {
	return l.load(ctx, asset, "")
}

func (l *Loader) load(ctx context.Context, asset manifest.Asset, def manifest.Mode) error {
	d := asset.Common()
	if d.ID == "" {
		return fmt.Errorf("%w: asset has no id", manifest.ErrManifest)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if e, ok := l.entries[d.ID]; ok {
		e.refCount++
		refs := e.refCount
		l.mu.Unlock()
		l.log().Debug("cache hit", "id", d.ID, "refs", refs)
		return nil
	}
	if c, ok := l.pending[d.ID]; ok {
		c.refs++
		l.mu.Unlock()
		return l.join(ctx, c)
	}
	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &call{done: make(chan struct{}), refs: 1, cancel: cancel}
	l.pending[d.ID] = c
	l.mu.Unlock()

	l.log().Debug("cache miss", "id", d.ID)
	go l.run(workCtx, c, asset, manifest.ResolveMode(d, def))
	return l.join(ctx, c)
}

// run materializes asset for a pending call and commits the outcome. An
// entry nobody is waiting for any more is discarded.
func (l *Loader) run(ctx context.Context, c *call, asset manifest.Asset, mode manifest.Mode) {
	defer c.cancel()
	id := asset.Common().ID
	e, err := l.materialize(ctx, asset, mode)

	l.mu.Lock()
	delete(l.pending, id)
	var discard *stream.Media
	if err == nil && (l.closed || c.refs == 0) {
		if l.closed {
			err = ErrClosed
		} else {
			err = context.Canceled
		}
		discard = e.media
	}
	if err == nil {
		e.refCount = c.refs
		l.entries[id] = e
	} else {
		err = fmt.Errorf("load %q: %w", id, err)
	}
	c.err = err
	close(c.done)
	l.mu.Unlock()
	if discard != nil {
		discard.Detach()
	}
}

// join waits for an in-flight load. A caller that gives up before the load
// commits withdraws its reference; the last one out cancels the work.
func (l *Loader) join(ctx context.Context, c *call) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-c.done:
		return c.err
	default:
		c.refs--
		if c.refs == 0 {
			c.cancel()
		}
		return ctx.Err()
	}
}

// materialize builds an entry for asset without touching loader state.
func (l *Loader) materialize(ctx context.Context, asset manifest.Asset, mode manifest.Mode) (*entry, error) {
	d := asset.Common()
	src := fetch.Join(l.baseURL, Resolve(d.Src, d.Fallback, l.probe))
	e := &entry{
		kind: asset.Kind(),
		mode: mode,
		src:  src,
		hint: l.formatHint(src),
	}
	if s, ok := asset.(manifest.Sprite); ok {
		e.clips = maps.Clone(s.Clips)
	}

	switch mode {
	case manifest.ModePreload:
		buf, err := l.fetchAndDecode(ctx, e.src, e.hint)
		if err != nil {
			return nil, err
		}
		e.buffer = buf
	case manifest.ModeStream:
		e.media = stream.New(e.src, l.opener(e.src), l.streamOpts...)
	case manifest.ModeLazy:
	default:
		return nil, fmt.Errorf("%w: unknown loading mode %q", manifest.ErrManifest, mode)
	}
	return e, nil
}

// EnsureReady decodes a lazy entry on first use. Concurrent callers share
// one fetch and decode, which runs to completion even if the caller that
// started it gives up. Entries in other modes, and lazy entries already
// decoded, return immediately.
func (l *Loader) EnsureReady(ctx context.Context, id string) error {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotLoaded, id)
	}
	if e.mode != manifest.ModeLazy || e.buffer != nil {
		l.mu.Unlock()
		return nil
	}
	src, hint := e.src, e.hint
	l.mu.Unlock()

	// Keyed by entry so a reloaded id never joins a stale decode.
	key := fmt.Sprintf("%s\x00%p", id, e)
	workCtx := context.WithoutCancel(ctx)
	ch := l.lazy.DoChan(key, func() (any, error) {
		l.mu.Lock()
		ready := e.buffer != nil
		l.mu.Unlock()
		if ready {
			return nil, nil
		}
		buf, err := l.fetchAndDecode(workCtx, src, hint)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		e.buffer = buf
		l.mu.Unlock()
		return nil, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return fmt.Errorf("ensure ready %q: %w", id, ctx.Err())
	}
	err, shared := res.Err, res.Shared
	if err != nil {
		return fmt.Errorf("ensure ready %q: %w", id, err)
	}
	if shared {
		l.log().Debug("lazy decode shared", "id", id)
	}
	return nil
}

// Release drops one reference to id. The entry is unloaded when no
// references remain. Unknown ids are ignored.
func (l *Loader) Release(id string) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	e.refCount = max(e.refCount-1, 0)
	var detach []*stream.Media
	if e.refCount == 0 {
		detach = l.unloadLocked(id)
	}
	l.mu.Unlock()
	detachAll(detach)
}

// Unload removes an asset, or every member of a group. Unloading a group
// deletes the group and any catalog registered under the same name.
// References held elsewhere are not consulted.
func (l *Loader) Unload(idOrGroup string) {
	l.mu.Lock()
	detach := l.unloadLocked(idOrGroup)
	l.mu.Unlock()
	detachAll(detach)
}

// unloadLocked removes key and returns the media handles to detach once the
// mutex is released. Groups are deleted before their members are visited,
// so cyclic includes terminate.
func (l *Loader) unloadLocked(key string) []*stream.Media {
	if members, ok := l.groups[key]; ok {
		delete(l.groups, key)
		delete(l.groupBank, key)
		delete(l.catalogs, key)
		var detach []*stream.Media
		for _, m := range members {
			detach = append(detach, l.unloadLocked(m)...)
		}
		l.log().Debug("group unloaded", "group", key, "members", len(members))
		return detach
	}
	e, ok := l.entries[key]
	if !ok {
		return nil
	}
	delete(l.entries, key)
	l.log().Debug("asset unloaded", "id", key)
	if e.media != nil {
		return []*stream.Media{e.media}
	}
	return nil
}

func detachAll(media []*stream.Media) {
	for _, m := range media {
		m.Detach()
	}
}

// ResolveSpriteClip returns the bounds of clip within sprite id.
func (l *Loader) ResolveSpriteClip(id, clip string) (Clip, error) {
	l.mu.Lock()
	e, ok := l.entries[id]
	l.mu.Unlock()
	if !ok || e.kind != manifest.KindSprite {
		return Clip{}, fmt.Errorf("%w: sprite %q", ErrNotFound, id)
	}
	c, ok := e.clips[clip]
	if !ok {
		return Clip{}, fmt.Errorf("%w: clip %q in sprite %q", ErrNotFound, clip, id)
	}
	start, end := c.Seconds()
	return Clip{Start: start, End: end}, nil
}

// Has reports whether id is cached.
func (l *Loader) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[id]
	return ok
}

// RefCount returns the reference count of id, or 0 if it is not cached.
func (l *Loader) RefCount(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[id]; ok {
		return e.refCount
	}
	return 0
}

// Mode returns the loading mode of a cached id.
func (l *Loader) Mode(id string) (manifest.Mode, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[id]; ok {
		return e.mode, true
	}
	return "", false
}

// Source returns the resolved source of a cached id.
func (l *Loader) Source(id string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[id]; ok {
		return e.src, true
	}
	return "", false
}

// Buffer returns the decoded audio of id, or nil if id is not cached or not
// yet decoded.
func (l *Loader) Buffer(id string) *decode.Buffer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[id]; ok {
		return e.buffer
	}
	return nil
}

// Media returns the streaming handle of id, or nil for entries that do not
// stream.
func (l *Loader) Media(id string) *stream.Media {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[id]; ok {
		return e.media
	}
	return nil
}

// IDs returns the cached ids in sorted order.
func (l *Loader) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Sorted(maps.Keys(l.entries))
}

// Group returns the members of a group.
func (l *Loader) Group(id string) ([]string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	members, ok := l.groups[id]
	return slices.Clone(members), ok
}

// Catalog returns the binary bank registered under bankID.
func (l *Loader) Catalog(bankID string) (*bank.Catalog, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.catalogs[bankID]
	return c, ok
}

// Stats returns a snapshot of the loader state.
func (l *Loader) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	waiters := 0
	for _, c := range l.pending {
		waiters += c.refs
	}
	return Stats{
		Entries:  len(l.entries),
		Pending:  len(l.pending),
		Waiters:  waiters,
		Groups:   len(l.groups),
		Catalogs: len(l.catalogs),
		Fetches:  l.fetches.Load(),
		Decodes:  l.decodes.Load(),
	}
}

// Close unloads everything and detaches all media handles. Later loads
// fail with ErrClosed; loads in flight are discarded when they finish.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	var detach []*stream.Media
	for _, e := range l.entries {
		if e.media != nil {
			detach = append(detach, e.media)
		}
	}
	clear(l.entries)
	clear(l.groups)
	clear(l.groupBank)
	clear(l.catalogs)
	l.mu.Unlock()
	detachAll(detach)
	return nil
}
