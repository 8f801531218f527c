package core_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/aretw0/mulch/pkg/core"
)

// MockRepository implements core.Repository in memory.
// It deliberately does NOT implement core.Transactional to test fallback/errors.
type MockRepository struct {
	posts map[string]core.Post
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		posts: make(map[string]core.Post),
	}
}

func (m *MockRepository) Save(ctx context.Context, p core.Post) error {
	m.posts[p.ID] = p
	return nil
}

func (m *MockRepository) Get(ctx context.Context, id string) (core.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return core.Post{}, core.ErrNotFound
	}
	return p, nil
}

func (m *MockRepository) List(ctx context.Context) ([]core.Post, error) {
	var posts []core.Post
	for _, p := range m.posts {
		posts = append(posts, p)
	}
	// Sort for deterministic tests
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ID < posts[j].ID
	})
	return posts, nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *MockRepository) Initialize(ctx context.Context) error { return nil }

func TestService_CRUD(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	ctx := context.TODO()

	// 1. Save
	err := service.SavePost(ctx, "hello-world", "content1", core.Metadata{core.KeyTitle: "Hello World"})
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	// 2. Get
	p, err := service.GetPost(ctx, "hello-world")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if p.Content != "content1" {
		t.Errorf("expected content 'content1', got '%s'", p.Content)
	}

	// 3. List
	_ = service.SavePost(ctx, "second", "content2", nil)
	posts, err := service.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("expected 2 posts, got %d", len(posts))
	}

	// 4. Delete
	err = service.DeletePost(ctx, "hello-world")
	if err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	_, err = service.GetPost(ctx, "hello-world")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after deletion, got %v", err)
	}
}

func TestService_SavePost_Policies(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	ctx := context.TODO()

	t.Run("Defaults Date", func(t *testing.T) {
		if err := service.SavePost(ctx, "dated", "", core.Metadata{}); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
		p, _ := service.GetPost(ctx, "dated")
		if _, ok := p.Date(); !ok {
			t.Error("expected date to be defaulted to now")
		}
	})

	t.Run("Normalizes Tags", func(t *testing.T) {
		meta := core.Metadata{core.KeyTags: []any{"Go", "web", "go"}}
		if err := service.SavePost(ctx, "tagged", "", meta); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
		p, _ := service.GetPost(ctx, "tagged")
		tags := p.Tags()
		if len(tags) != 2 || tags[0] != "go" || tags[1] != "web" {
			t.Errorf("expected [go web], got %v", tags)
		}
	})
}

func TestService_ValidateSlug(t *testing.T) {
	bad := []string{"", "/absolute", "../escape", "a/../../b", "win\\path"}
	for _, slug := range bad {
		if err := core.ValidateSlug(slug); !errors.Is(err, core.ErrInvalidSlug) {
			t.Errorf("expected ErrInvalidSlug for %q, got %v", slug, err)
		}
	}

	good := []string{"post", "2024/march/post", "nested/slug"}
	for _, slug := range good {
		if err := core.ValidateSlug(slug); err != nil {
			t.Errorf("expected %q to be valid, got %v", slug, err)
		}
	}
}

func TestService_PublishUnpublish(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	ctx := context.TODO()

	meta := core.Metadata{core.KeyDraft: true}
	if err := service.SavePost(ctx, "wip", "body", meta); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	if err := service.Publish(ctx, "wip"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	p, _ := service.GetPost(ctx, "wip")
	if p.Draft() {
		t.Error("expected post to be published")
	}

	if err := service.Unpublish(ctx, "wip"); err != nil {
		t.Fatalf("Unpublish failed: %v", err)
	}
	p, _ = service.GetPost(ctx, "wip")
	if !p.Draft() {
		t.Error("expected post to be draft again")
	}
}

func TestService_Tags(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	ctx := context.TODO()

	service.SavePost(ctx, "a", "", core.Metadata{core.KeyTags: []string{"go", "web"}})
	service.SavePost(ctx, "b", "", core.Metadata{core.KeyTags: []string{"go"}})

	counts, err := service.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if counts["go"] != 2 || counts["web"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestService_Begin_Unsupported(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	ctx := context.TODO()

	err := service.WithTransaction(ctx, func(tx core.Transaction) error {
		return nil
	})

	if err == nil {
		t.Fatal("expected error for non-transactional repo")
	}
	if err.Error() != "repository does not support transactions" {
		t.Errorf("unexpected error msg: %v", err)
	}
}

func TestService_State(t *testing.T) {
	service := core.NewService(NewMockRepository())

	state, ok := service.State().(core.ServiceState)
	if !ok {
		t.Fatalf("unexpected state type: %T", service.State())
	}
	if state.RepositoryType != "repository" {
		t.Errorf("unexpected repository type: %q", state.RepositoryType)
	}
	if service.ComponentType() != "service" {
		t.Errorf("unexpected component type: %q", service.ComponentType())
	}
}
