package typed

import (
	"context"
	"fmt"

	"github.com/aretw0/mulch/pkg/core"
)

// FrontMatter is the canonical typed front matter for blog posts, matching
// the metadata schema static-site generators consume.
type FrontMatter struct {
	Title  string   `json:"title,omitempty"`
	Date   string   `json:"date,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Draft  bool     `json:"draft,omitempty"`
	Series string   `json:"series,omitempty"`
}

// Service wraps a core.Service to provide type-safe access with business
// validation applied.
type Service[T any] struct {
	svc *core.Service
}

// NewService creates a new type-safe wrapper around an existing service.
func NewService[T any](svc *core.Service) *Service[T] {
	return &Service[T]{svc: svc}
}

// Save persists a typed post through the service (validation included).
func (s *Service[T]) Save(ctx context.Context, p *PostModel[T]) error {
	metadata, err := toMetadata(p.Data)
	if err != nil {
		return err
	}

	if p.Saver == nil {
		p.Saver = s
	}

	return s.svc.SavePost(ctx, p.ID, p.Content, metadata)
}

// Get retrieves a post and unmarshals its front matter.
func (s *Service[T]) Get(ctx context.Context, id string) (*PostModel[T], error) {
	corePost, err := s.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromCore(corePost, s)
}

// List returns all posts converted to the typed model.
func (s *Service[T]) List(ctx context.Context) ([]*PostModel[T], error) {
	corePosts, err := s.svc.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*PostModel[T], 0, len(corePosts))
	for _, p := range corePosts {
		model, err := fromCore(p, s)
		if err != nil {
			return nil, fmt.Errorf("failed to process post %s: %w", p.ID, err)
		}
		result = append(result, model)
	}
	return result, nil
}

// Delete removes a post by slug.
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	return s.svc.DeletePost(ctx, id)
}
