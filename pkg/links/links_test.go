package links_test

import (
	"testing"

	"github.com/aretw0/mulch/pkg/core"
	"github.com/aretw0/mulch/pkg/links"
)

func TestIsExternal(t *testing.T) {
	external := []string{"https://example.com", "http://x", "mailto:a@b.c", "//cdn.example.com/x"}
	for _, target := range external {
		if !links.IsExternal(target) {
			t.Errorf("expected %q to be external", target)
		}
	}

	internal := []string{"other-post", "/posts/foo", "../sibling", "#anchor"}
	for _, target := range internal {
		if links.IsExternal(target) {
			t.Errorf("expected %q to be internal", target)
		}
	}
}

func TestExtract(t *testing.T) {
	p := core.Post{
		ID: "post",
		Content: `Intro with [inline](other-post) link.

An ![image](diagram.png) and [titled](target "A Title").

[ref]: https://example.com
`,
	}

	got := links.Extract(p)
	if len(got) != 4 {
		t.Fatalf("expected 4 links, got %d: %+v", len(got), got)
	}

	if got[0].Target != "other-post" || got[0].Line != 1 || got[0].External {
		t.Errorf("unexpected first link: %+v", got[0])
	}
	if got[1].Target != "diagram.png" {
		t.Errorf("expected image target, got %+v", got[1])
	}
	if got[2].Target != "target" {
		t.Errorf("expected title to be stripped, got %+v", got[2])
	}
	if got[3].Target != "https://example.com" || !got[3].External {
		t.Errorf("expected external reference definition, got %+v", got[3])
	}
}

func TestAudit(t *testing.T) {
	posts := []core.Post{
		{ID: "a", Content: "[good](b) [anchored](b#section) [self](#top) [ext](https://x.y)"},
		{ID: "b", Content: "[broken](ghost)"},
		{ID: "nested/c", Content: "[sibling](d) [rooted](/a)"},
		{ID: "nested/d", Content: ""},
	}

	issues := links.Audit(posts)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %+v", len(issues), issues)
	}
	if issues[0].Slug != "b" || issues[0].Target != "ghost" {
		t.Errorf("unexpected issue: %+v", issues[0])
	}
}

func TestAudit_MarkdownExtension(t *testing.T) {
	posts := []core.Post{
		{ID: "a", Content: "[with ext](b.md)"},
		{ID: "b", Content: ""},
	}

	if issues := links.Audit(posts); len(issues) != 0 {
		t.Errorf("expected .md links to resolve, got %+v", issues)
	}
}
