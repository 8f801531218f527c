package core_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/aretw0/mulch/pkg/core"
)

func TestPost_Title(t *testing.T) {
	p := core.Post{Metadata: core.Metadata{core.KeyTitle: "Hello"}}
	if p.Title() != "Hello" {
		t.Errorf("expected 'Hello', got %q", p.Title())
	}

	empty := core.Post{}
	if empty.Title() != "" {
		t.Errorf("expected empty title, got %q", empty.Title())
	}
}

func TestPost_Tags(t *testing.T) {
	cases := []struct {
		name string
		meta core.Metadata
		want []string
	}{
		{"nil metadata", nil, nil},
		{"string slice", core.Metadata{core.KeyTags: []string{"go", "web"}}, []string{"go", "web"}},
		{"any slice from yaml", core.Metadata{core.KeyTags: []any{"Go", "web"}}, []string{"go", "web"}},
		{"scalar", core.Metadata{core.KeyTags: "solo"}, []string{"solo"}},
		{"dedup and sort", core.Metadata{core.KeyTags: []any{"b", "A", "b"}}, []string{"a", "b"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := core.Post{Metadata: tc.meta}
			got := p.Tags()
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestPost_Date(t *testing.T) {
	t.Run("RFC3339", func(t *testing.T) {
		p := core.Post{Metadata: core.Metadata{core.KeyDate: "2024-03-01T10:00:00Z"}}
		d, ok := p.Date()
		if !ok {
			t.Fatal("expected date to parse")
		}
		if d.Year() != 2024 || d.Month() != time.March {
			t.Errorf("unexpected date: %v", d)
		}
	})

	t.Run("date only", func(t *testing.T) {
		p := core.Post{Metadata: core.Metadata{core.KeyDate: "2024-03-01"}}
		if _, ok := p.Date(); !ok {
			t.Error("expected short date to parse")
		}
	})

	t.Run("absent", func(t *testing.T) {
		p := core.Post{}
		if _, ok := p.Date(); ok {
			t.Error("expected no date")
		}
	})
}

func TestPost_Draft(t *testing.T) {
	if (core.Post{}).Draft() {
		t.Error("posts are published by default")
	}
	p := core.Post{Metadata: core.Metadata{core.KeyDraft: true}}
	if !p.Draft() {
		t.Error("expected draft")
	}
}
