package index_test

import (
	"errors"
	"testing"

	"github.com/aretw0/mulch/pkg/core"
	"github.com/aretw0/mulch/pkg/index"
)

func post(slug, date string, tags []string, series string) core.Post {
	meta := core.Metadata{}
	if date != "" {
		meta[core.KeyDate] = date
	}
	if tags != nil {
		meta[core.KeyTags] = tags
	}
	if series != "" {
		meta[core.KeySeries] = series
	}
	return core.Post{ID: slug, Metadata: meta}
}

func slugs(entries []index.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Slug
	}
	return out
}

func TestIndex_Recent(t *testing.T) {
	ix := index.New()
	ix.Rebuild([]core.Post{
		post("old", "2023-01-01", nil, ""),
		post("new", "2024-06-01", nil, ""),
		post("mid", "2024-01-01", nil, ""),
	})

	got := slugs(ix.Recent(0))
	want := []string{"new", "mid", "old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	if top := ix.Recent(1); len(top) != 1 || top[0].Slug != "new" {
		t.Errorf("expected Recent(1) = [new], got %v", slugs(top))
	}
}

func TestIndex_UndatedSortsLast(t *testing.T) {
	ix := index.New()
	ix.Rebuild([]core.Post{
		post("dated", "2024-01-01", nil, ""),
		post("undated", "", nil, ""),
	})

	got := slugs(ix.Recent(0))
	if got[len(got)-1] != "undated" {
		t.Errorf("expected undated post last, got %v", got)
	}
}

func TestIndex_ByTag(t *testing.T) {
	ix := index.New()
	ix.Rebuild([]core.Post{
		post("a", "2024-01-01", []string{"go"}, ""),
		post("b", "2024-02-01", []string{"go", "web"}, ""),
		post("c", "2024-03-01", []string{"web"}, ""),
	})

	entries, err := ix.ByTag("go")
	if err != nil {
		t.Fatalf("ByTag failed: %v", err)
	}
	got := slugs(entries)
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("expected [b a], got %v", got)
	}

	_, err = ix.ByTag("rust")
	if !errors.Is(err, index.ErrTagNotFound) {
		t.Errorf("expected ErrTagNotFound, got %v", err)
	}
}

func TestIndex_Series(t *testing.T) {
	ix := index.New()
	ix.Rebuild([]core.Post{
		post("part-2", "2024-02-01", nil, "contexts"),
		post("part-1", "2024-01-01", nil, "contexts"),
		post("part-3", "2024-03-01", nil, "contexts"),
		post("other", "2024-01-15", nil, ""),
	})

	got := slugs(ix.Series("contexts"))
	want := []string{"part-1", "part-2", "part-3"}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected series order %v, got %v", want, got)
		}
	}

	if s := ix.Series("ghost"); len(s) != 0 {
		t.Errorf("expected empty series, got %v", s)
	}
}

func TestIndex_UpsertAndRemove(t *testing.T) {
	ix := index.New()
	ix.Rebuild([]core.Post{
		post("a", "2024-01-01", []string{"go"}, ""),
	})

	// New post lands in all views.
	ix.Upsert(post("b", "2024-02-01", []string{"go"}, "s"))
	if ix.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", ix.Len())
	}
	entries, _ := ix.ByTag("go")
	if got := slugs(entries); got[0] != "b" {
		t.Errorf("expected b first by recency, got %v", got)
	}

	// Replacing updates, does not duplicate.
	ix.Upsert(post("b", "2023-01-01", []string{"web"}, ""))
	if ix.Len() != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", ix.Len())
	}
	if _, err := ix.ByTag("web"); err != nil {
		t.Errorf("expected tag 'web' after replace: %v", err)
	}

	ix.Remove("b")
	if ix.Len() != 1 {
		t.Fatalf("expected 1 entry after remove, got %d", ix.Len())
	}
	if _, err := ix.ByTag("web"); !errors.Is(err, index.ErrTagNotFound) {
		t.Errorf("expected empty tag to be dropped, got %v", err)
	}
	if _, ok := ix.Get("b"); ok {
		t.Error("expected b to be gone")
	}
}

func TestIndex_TagCounts(t *testing.T) {
	ix := index.New()
	ix.Rebuild([]core.Post{
		post("a", "2024-01-01", []string{"go", "web"}, ""),
		post("b", "2024-02-01", []string{"go"}, ""),
	})

	counts := ix.TagCounts()
	if counts["go"] != 2 || counts["web"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
