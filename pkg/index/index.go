// Package index maintains in-memory indexes over a site's front matter:
// a chronological index and per-tag / per-series views. It is rebuilt from
// a full post listing and never touches storage itself.
package index

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/btree"

	"github.com/aretw0/mulch/pkg/core"
)

// ErrTagNotFound is returned when querying a tag no post carries.
var ErrTagNotFound = errors.New("tag not found")

// Entry is the indexed view of a post's front matter.
type Entry struct {
	Slug   string
	Title  string
	Date   time.Time
	Tags   []string
	Draft  bool
	Series string
}

// byRecency orders entries newest first; slug breaks ties so the order is
// total and deterministic.
func byRecency(a, b Entry) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.Slug < b.Slug
}

// Index holds the in-memory site indexes.
type Index struct {
	mu       sync.RWMutex
	chrono   *btree.BTreeG[Entry]
	byTag    map[string][]string // tag -> slugs, newest first
	bySeries map[string][]Entry  // series -> entries, oldest first
	bySlug   map[string]Entry
}

// New creates an empty index.
func New() *Index {
	return &Index{
		chrono:   btree.NewBTreeG(byRecency),
		byTag:    make(map[string][]string),
		bySeries: make(map[string][]Entry),
		bySlug:   make(map[string]Entry),
	}
}

// Rebuild replaces the index contents from a full listing.
// Posts without a date sort last (zero time).
func (ix *Index) Rebuild(posts []core.Post) {
	chrono := btree.NewBTreeG(byRecency)
	byTag := make(map[string][]string)
	bySeries := make(map[string][]Entry)
	bySlug := make(map[string]Entry)

	for _, p := range posts {
		e := entryOf(p)
		chrono.Set(e)
		bySlug[e.Slug] = e
	}

	// Derive secondary views from the chronological scan so every slice is
	// already in recency order.
	chrono.Scan(func(e Entry) bool {
		for _, tag := range e.Tags {
			byTag[tag] = append(byTag[tag], e.Slug)
		}
		if e.Series != "" {
			bySeries[e.Series] = append(bySeries[e.Series], e)
		}
		return true
	})

	// Series read oldest-to-newest.
	for name, entries := range bySeries {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
		bySeries[name] = entries
	}

	ix.mu.Lock()
	ix.chrono = chrono
	ix.byTag = byTag
	ix.bySeries = bySeries
	ix.bySlug = bySlug
	ix.mu.Unlock()
}

func entryOf(p core.Post) Entry {
	e := Entry{
		Slug:   p.ID,
		Title:  p.Title(),
		Tags:   p.Tags(),
		Draft:  p.Draft(),
		Series: p.Series(),
	}
	if date, ok := p.Date(); ok {
		e.Date = date
	}
	return e
}

// Upsert inserts or replaces a single entry without a full rebuild.
func (ix *Index) Upsert(p core.Post) {
	e := entryOf(p)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.bySlug[e.Slug]; ok {
		ix.removeLocked(old)
	}
	ix.chrono.Set(e)
	ix.bySlug[e.Slug] = e
	for _, tag := range e.Tags {
		ix.byTag[tag] = insertBySlugOrder(ix.byTag[tag], e, ix.bySlug)
	}
	if e.Series != "" {
		ix.bySeries[e.Series] = insertByDate(ix.bySeries[e.Series], e)
	}
}

// Remove drops a slug from all views.
func (ix *Index) Remove(slug string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if e, ok := ix.bySlug[slug]; ok {
		ix.removeLocked(e)
	}
}

func (ix *Index) removeLocked(e Entry) {
	ix.chrono.Delete(e)
	delete(ix.bySlug, e.Slug)
	for _, tag := range e.Tags {
		ix.byTag[tag] = removeSlug(ix.byTag[tag], e.Slug)
		if len(ix.byTag[tag]) == 0 {
			delete(ix.byTag, tag)
		}
	}
	if e.Series != "" {
		ix.bySeries[e.Series] = removeEntry(ix.bySeries[e.Series], e.Slug)
		if len(ix.bySeries[e.Series]) == 0 {
			delete(ix.bySeries, e.Series)
		}
	}
}

// Recent returns up to n entries, newest first. n <= 0 returns everything.
func (ix *Index) Recent(n int) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Entry
	ix.chrono.Scan(func(e Entry) bool {
		out = append(out, e)
		return n <= 0 || len(out) < n
	})
	return out
}

// ByTag returns entries carrying the tag, newest first.
func (ix *Index) ByTag(tag string) ([]Entry, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	slugs, ok := ix.byTag[tag]
	if !ok {
		return nil, errors.Wrapf(ErrTagNotFound, "%q", tag)
	}

	out := make([]Entry, 0, len(slugs))
	for _, slug := range slugs {
		if e, ok := ix.bySlug[slug]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Series returns the entries of a series, oldest first.
func (ix *Index) Series(name string) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	entries := ix.bySeries[name]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// TagCounts returns the number of posts per tag.
func (ix *Index) TagCounts() map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	counts := make(map[string]int, len(ix.byTag))
	for tag, slugs := range ix.byTag {
		counts[tag] = len(slugs)
	}
	return counts
}

// Get returns the indexed entry for a slug.
func (ix *Index) Get(slug string) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.bySlug[slug]
	return e, ok
}

// Len returns the number of indexed posts.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.chrono.Len()
}

func removeSlug(slugs []string, slug string) []string {
	out := slugs[:0]
	for _, s := range slugs {
		if s != slug {
			out = append(out, s)
		}
	}
	return out
}

func removeEntry(entries []Entry, slug string) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Slug != slug {
			out = append(out, e)
		}
	}
	return out
}

// insertBySlugOrder inserts a slug keeping the recency order of the tag list.
func insertBySlugOrder(slugs []string, e Entry, bySlug map[string]Entry) []string {
	for i, s := range slugs {
		if other, ok := bySlug[s]; ok && byRecency(e, other) {
			slugs = append(slugs, "")
			copy(slugs[i+1:], slugs[i:])
			slugs[i] = e.Slug
			return slugs
		}
	}
	return append(slugs, e.Slug)
}

// insertByDate inserts an entry keeping oldest-first order.
func insertByDate(entries []Entry, e Entry) []Entry {
	for i, other := range entries {
		if byRecency(other, e) {
			entries = append(entries, Entry{})
			copy(entries[i+1:], entries[i:])
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}
