package typed_test

import (
	"context"
	"testing"

	"github.com/aretw0/mulch/pkg/core"
	"github.com/aretw0/mulch/pkg/typed"
)

// memRepo is a minimal in-memory core.Repository for tests.
type memRepo struct {
	posts map[string]core.Post
}

func newMemRepo() *memRepo {
	return &memRepo{posts: make(map[string]core.Post)}
}

func (m *memRepo) Save(ctx context.Context, p core.Post) error {
	m.posts[p.ID] = p
	return nil
}

func (m *memRepo) Get(ctx context.Context, id string) (core.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return core.Post{}, core.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) List(ctx context.Context) ([]core.Post, error) {
	var out []core.Post
	for _, p := range m.posts {
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	delete(m.posts, id)
	return nil
}

func (m *memRepo) Initialize(ctx context.Context) error { return nil }

func TestTypedRepository_Roundtrip(t *testing.T) {
	repo := typed.NewRepository[typed.FrontMatter](newMemRepo())
	ctx := context.Background()

	post := &typed.PostModel[typed.FrontMatter]{
		ID:      "hello",
		Content: "# Hi",
		Data: typed.FrontMatter{
			Title: "Hello",
			Tags:  []string{"go"},
			Draft: true,
		},
	}

	if err := repo.Save(ctx, post); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Get(ctx, "hello")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Data.Title != "Hello" {
		t.Errorf("expected title 'Hello', got %q", got.Data.Title)
	}
	if !got.Data.Draft {
		t.Error("expected draft flag to survive the roundtrip")
	}
	if len(got.Data.Tags) != 1 || got.Data.Tags[0] != "go" {
		t.Errorf("unexpected tags: %v", got.Data.Tags)
	}
	if got.Content != "# Hi" {
		t.Errorf("unexpected content: %q", got.Content)
	}
}

func TestPostModel_ActiveRecordSave(t *testing.T) {
	repo := typed.NewRepository[typed.FrontMatter](newMemRepo())
	ctx := context.Background()

	post := &typed.PostModel[typed.FrontMatter]{
		ID:   "ar",
		Data: typed.FrontMatter{Title: "v1"},
	}
	if err := repo.Save(ctx, post); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutate and save through the model itself.
	got, _ := repo.Get(ctx, "ar")
	got.Data.Title = "v2"
	if err := got.Save(ctx); err != nil {
		t.Fatalf("model Save failed: %v", err)
	}

	again, _ := repo.Get(ctx, "ar")
	if again.Data.Title != "v2" {
		t.Errorf("expected 'v2', got %q", again.Data.Title)
	}
}

func TestPostModel_DetachedSaveFails(t *testing.T) {
	post := &typed.PostModel[typed.FrontMatter]{ID: "loose"}
	if err := post.Save(context.Background()); err == nil {
		t.Error("expected error saving a detached model")
	}
}

func TestTypedService_AppliesValidation(t *testing.T) {
	svc := typed.NewService[typed.FrontMatter](core.NewService(newMemRepo()))
	ctx := context.Background()

	bad := &typed.PostModel[typed.FrontMatter]{ID: "../escape"}
	if err := svc.Save(ctx, bad); err == nil {
		t.Error("expected slug validation to reject traversal")
	}

	good := &typed.PostModel[typed.FrontMatter]{
		ID:   "fine",
		Data: typed.FrontMatter{Title: "Fine"},
	}
	if err := svc.Save(ctx, good); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := svc.Get(ctx, "fine")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Data.Date == "" {
		t.Error("expected the service to default the date")
	}
}
