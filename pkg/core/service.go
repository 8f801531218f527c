package core

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

// Service handles the business logic for posts.
type Service struct {
	repo Repository

	mu sync.RWMutex
}

// NewService creates a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ValidateSlug checks that a slug is non-empty and a safe relative path.
// Slugs address files inside the site directory, so absolute paths and
// traversal outside the root are rejected.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSlug)
	}
	if strings.Contains(slug, "\\") {
		return fmt.Errorf("%w: backslash in %q", ErrInvalidSlug, slug)
	}
	if strings.HasPrefix(slug, "/") {
		return fmt.Errorf("%w: absolute path %q", ErrInvalidSlug, slug)
	}
	clean := path.Clean(slug)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: path traversal in %q", ErrInvalidSlug, slug)
	}
	return nil
}

// SavePost saves a post after applying front matter policies:
// the date defaults to now when absent, and tags are normalized
// (lower-cased, de-duplicated, sorted).
func (s *Service) SavePost(ctx context.Context, id string, content string, metadata Metadata) error {
	if err := ValidateSlug(id); err != nil {
		return err
	}

	if metadata == nil {
		metadata = make(Metadata)
	}

	p := Post{
		ID:       id,
		Content:  content,
		Metadata: metadata,
	}

	if _, ok := p.Date(); !ok {
		metadata[KeyDate] = time.Now().Format(time.RFC3339)
	}
	if tags := p.Tags(); tags != nil {
		metadata[KeyTags] = tags
	}

	return s.repo.Save(ctx, p)
}

// GetPost retrieves a post by slug.
func (s *Service) GetPost(ctx context.Context, id string) (Post, error) {
	if err := ValidateSlug(id); err != nil {
		return Post{}, err
	}
	return s.repo.Get(ctx, id)
}

// ListPosts retrieves all posts.
func (s *Service) ListPosts(ctx context.Context) ([]Post, error) {
	return s.repo.List(ctx)
}

// DeletePost removes a post.
func (s *Service) DeletePost(ctx context.Context, id string) error {
	if err := ValidateSlug(id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Publish clears the draft flag on a post and persists it.
func (s *Service) Publish(ctx context.Context, id string) error {
	return s.setDraft(ctx, id, false)
}

// Unpublish marks a post as draft and persists it.
func (s *Service) Unpublish(ctx context.Context, id string) error {
	return s.setDraft(ctx, id, true)
}

func (s *Service) setDraft(ctx context.Context, id string, draft bool) error {
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if p.Draft() == draft {
		return nil
	}
	if p.Metadata == nil {
		p.Metadata = make(Metadata)
	}
	p.Metadata[KeyDraft] = draft
	return s.repo.Save(ctx, p)
}

// Tags returns the number of posts per tag across the whole site.
// Draft posts are included; callers can filter beforehand if needed.
func (s *Service) Tags(ctx context.Context) (map[string]int, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, p := range posts {
		for _, tag := range p.Tags() {
			counts[tag]++
		}
	}
	return counts, nil
}

// WithTransaction executes a function within a transaction.
func (s *Service) WithTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	tr, ok := s.repo.(Transactional)
	if !ok {
		return errors.New("repository does not support transactions")
	}

	tx, err := tr.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}

	msg := "batch transaction"
	if val, ok := ctx.Value(ChangeReasonKey).(string); ok && val != "" {
		msg = val
	}
	return tx.Commit(ctx, msg)
}

// Begin initiates a transaction manually.
// Exposed for power users or custom workflows.
func (s *Service) Begin(ctx context.Context) (Transaction, error) {
	tr, ok := s.repo.(Transactional)
	if !ok {
		return nil, errors.New("repository does not support transactions")
	}
	return tr.Begin(ctx)
}

// Watch observes changes in the repository if supported.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}
	return w.Watch(ctx, pattern)
}
