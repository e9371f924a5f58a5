package loader

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/aurb/bank"
	"github.com/meigma/aurb/cache"
	"github.com/meigma/aurb/fetch"
	"github.com/meigma/aurb/manifest"
	"github.com/meigma/aurb/stream"
)

// LoadBank loads every asset of m, then registers its groups.
//
// Assets load in batches of at most maxParallel; each batch settles before
// the next starts. The first failure fails the bank: assets already loaded
// stay cached and the groups are not applied. On success the bank's previous
// groups are replaced and every cached member of a new group gains one
// reference. A group id owned by another bank moves to this bank and its
// old members lose the reference that group held.
func (l *Loader) LoadBank(ctx context.Context, m *manifest.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	for batch := range slices.Chunk(m.Assets, l.maxParallel) {
		var g errgroup.Group
		for _, a := range batch {
			g.Go(func() error {
				return l.load(ctx, a, m.DefaultMode)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("load bank %q: %w", m.BankID, err)
		}
	}

	l.mu.Lock()
	// New references are taken before old ones are dropped so a member
	// shared by the old and new groups is never unloaded in between.
	var released []string
	for gid, owner := range l.groupBank {
		if owner == m.BankID {
			released = append(released, l.takeGroupLocked(gid)...)
		}
	}
	for _, grp := range m.Groups {
		if owner, ok := l.groupBank[grp.ID]; ok {
			l.log().Debug("group reassigned", "group", grp.ID, "from", owner, "to", m.BankID)
			released = append(released, l.takeGroupLocked(grp.ID)...)
		}
		members := slices.Clone(grp.Includes)
		l.groups[grp.ID] = members
		l.groupBank[grp.ID] = m.BankID
		for _, id := range members {
			if e, ok := l.entries[id]; ok {
				e.refCount++
			}
		}
	}
	detach := l.dropRefsLocked(released)
	l.mu.Unlock()
	detachAll(detach)

	l.log().Info("bank loaded",
		"bank", m.BankID,
		"assets", len(m.Assets),
		"groups", len(m.Groups))
	return nil
}

// takeGroupLocked removes a bank-owned group and returns its members. The
// caller owes each member one reference release.
func (l *Loader) takeGroupLocked(gid string) []string {
	members := l.groups[gid]
	delete(l.groups, gid)
	delete(l.groupBank, gid)
	return members
}

// dropRefsLocked releases one reference per id. Members left without
// references are unloaded.
func (l *Loader) dropRefsLocked(ids []string) []*stream.Media {
	var detach []*stream.Media
	for _, id := range ids {
		e, ok := l.entries[id]
		if !ok {
			continue
		}
		e.refCount = max(e.refCount-1, 0)
		if e.refCount == 0 {
			detach = append(detach, l.unloadLocked(id)...)
		}
	}
	return detach
}

// LoadBankURL fetches a JSON or YAML manifest and loads it with LoadBank.
func (l *Loader) LoadBankURL(ctx context.Context, manifestURL string) error {
	data, err := l.retrier.Fetch(ctx, fetch.Join(l.baseURL, manifestURL))
	if err != nil {
		return err
	}
	var m *manifest.Manifest
	switch Ext(manifestURL) {
	case "yaml", "yml":
		m, err = manifest.ParseYAML(data)
	default:
		m, err = manifest.Parse(data)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", manifestURL, err)
	}
	return l.LoadBank(ctx, m)
}

// LoadCatalog registers a decoded binary bank and loads all of its assets.
//
// Each entry becomes a single asset sourced from aurb://<bankID>/<name>,
// loaded in the mode recorded in meta or, without metadata, the mode
// suggested by its codec. A group named bankID holds every asset unless an
// asset already uses that id. A non-nil meta must describe cat's layout.
func (l *Loader) LoadCatalog(ctx context.Context, bankID string, cat *bank.Catalog, meta *bank.Metadata) error {
	if bankID == "" || strings.Contains(bankID, "/") {
		return fmt.Errorf("%w: invalid bank id %q", manifest.ErrManifest, bankID)
	}
	if meta != nil {
		if err := meta.Check(cat); err != nil {
			return err
		}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.catalogs[bankID] = cat
	l.mu.Unlock()

	m := &manifest.Manifest{BankID: bankID, Version: cat.Header().VersionString()}
	ids := make([]string, 0, cat.Len())
	shadowed := false
	for e := range cat.Entries() {
		m.Assets = append(m.Assets, manifest.Single{Descriptor: manifest.Descriptor{
			ID:   e.Name,
			Src:  BankURL(bankID, e.Name),
			Mode: catalogMode(e, meta),
		}})
		ids = append(ids, e.Name)
		shadowed = shadowed || e.Name == bankID
	}
	if !shadowed {
		m.Groups = []manifest.Group{{ID: bankID, Includes: ids}}
	}
	return l.LoadBank(ctx, m)
}

func catalogMode(e bank.Entry, meta *bank.Metadata) manifest.Mode {
	if meta != nil {
		if a, ok := meta.Asset(e.Name); ok {
			if mode := manifest.Mode(a.Mode); mode.Valid() {
				return mode
			}
			return manifest.Mode(bank.SuggestedMode(a.Codec))
		}
	}
	return manifest.Mode(bank.SuggestedMode(bank.FormatForCodec(e.Codec)))
}

// LoadBankBinary fetches a binary bank and loads it with LoadCatalog.
//
// metaURL is optional. When given, the metadata names the bank and its
// digest is checked against the blob; with a bank cache configured, a blob
// already cached under that digest is used without fetching. Without
// metadata the bank id is the base name of bankURL.
func (l *Loader) LoadBankBinary(ctx context.Context, bankURL, metaURL string) error {
	var meta *bank.Metadata
	if metaURL != "" {
		data, err := l.retrier.Fetch(ctx, fetch.Join(l.baseURL, metaURL))
		if err != nil {
			return err
		}
		meta, err = bank.ParseMetadata(data)
		if err != nil {
			return fmt.Errorf("%s: %w", metaURL, err)
		}
	}

	blob, err := l.fetchBank(ctx, fetch.Join(l.baseURL, bankURL), meta)
	if err != nil {
		return err
	}
	cat, err := bank.Parse(blob)
	if err != nil {
		return fmt.Errorf("%s: %w", bankURL, err)
	}

	bankID := bankIDFromURL(bankURL)
	if meta != nil && meta.BankID != "" {
		bankID = meta.BankID
	}
	return l.LoadCatalog(ctx, bankID, cat, meta)
}

func (l *Loader) fetchBank(ctx context.Context, src string, meta *bank.Metadata) ([]byte, error) {
	var dgst digest.Digest
	if meta != nil {
		dgst = meta.Digest
	}
	if dgst != "" && l.bankCache != nil {
		if blob, ok := cache.Verified(l.bankCache, dgst); ok {
			l.log().Debug("bank cache hit", "src", src, "digest", dgst)
			return blob, nil
		}
	}

	blob, err := l.retrier.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		if err := meta.Verify(blob); err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
	}
	if l.bankCache != nil {
		if dgst == "" {
			dgst = digest.FromBytes(blob)
		}
		if err := l.bankCache.Put(dgst, blob); err != nil {
			l.log().Warn("bank cache write failed", "digest", dgst, "error", err)
		}
	}
	return blob, nil
}

func bankIDFromURL(src string) string {
	base, _ := splitSuffix(src)
	name := path.Base(base)
	return strings.TrimSuffix(name, path.Ext(name))
}
