package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/mulch/pkg/core"
)

// PostModel wraps the raw core.Post with a typed front matter field.
// It acts as a typed view of a post.
type PostModel[T any] struct {
	ID      string
	Content string
	Data    T        // The typed front matter
	Saver   Saver[T] // Active Record reference interface
}

// Saver avoids tight coupling with Repository/Service structs.
type Saver[T any] interface {
	Save(ctx context.Context, p *PostModel[T]) error
}

// Save persists the post using the attached saver (Repository or Service).
func (p *PostModel[T]) Save(ctx context.Context) error {
	if p.Saver == nil {
		return fmt.Errorf("post is detached (missing Saver)")
	}
	return p.Saver.Save(ctx, p)
}

// Repository wraps a core.Repository to provide type-safe access.
type Repository[T any] struct {
	repo core.Repository
}

// NewRepository creates a new type-safe wrapper around an existing repository.
func NewRepository[T any](repo core.Repository) *Repository[T] {
	return &Repository[T]{repo: repo}
}

// Save persists a typed post.
func (r *Repository[T]) Save(ctx context.Context, p *PostModel[T]) error {
	metadata, err := toMetadata(p.Data)
	if err != nil {
		return err
	}

	corePost := core.Post{
		ID:       p.ID,
		Content:  p.Content,
		Metadata: metadata,
	}

	if p.Saver == nil {
		p.Saver = r
	}

	return r.repo.Save(ctx, corePost)
}

// Get retrieves a post and unmarshals its front matter.
func (r *Repository[T]) Get(ctx context.Context, id string) (*PostModel[T], error) {
	corePost, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromCore(corePost, r)
}

// List returns all posts converted to the typed model.
func (r *Repository[T]) List(ctx context.Context) ([]*PostModel[T], error) {
	corePosts, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*PostModel[T], 0, len(corePosts))
	for _, p := range corePosts {
		model, err := fromCore(p, r)
		if err != nil {
			return nil, fmt.Errorf("failed to process post %s: %w", p.ID, err)
		}
		result = append(result, model)
	}
	return result, nil
}

// Delete removes a post by slug.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}

// toMetadata converts a typed value into a metadata map via a JSON
// round-trip, honoring json struct tags.
func toMetadata(data any) (core.Metadata, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed data: %w", err)
	}

	var metadata map[string]any
	if err := json.Unmarshal(dataBytes, &metadata); err != nil {
		return nil, fmt.Errorf("failed to convert typed data to map: %w", err)
	}
	return metadata, nil
}

// fromCore converts a core.Post to a typed PostModel.
func fromCore[T any](corePost core.Post, saver Saver[T]) (*PostModel[T], error) {
	dataBytes, err := json.Marshal(corePost.Metadata)
	if err != nil {
		return nil, fmt.Errorf("metadata marshal failed: %w", err)
	}

	var data T
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return nil, fmt.Errorf("unmarshal to target type failed: %w", err)
	}

	return &PostModel[T]{
		ID:      corePost.ID,
		Content: corePost.Content,
		Data:    data,
		Saver:   saver,
	}, nil
}
