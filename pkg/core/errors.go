package core

import "errors"

// Common errors.
var (
	// ErrNotFound indicates the requested post does not exist.
	ErrNotFound = errors.New("post not found")

	// ErrReadOnly indicates the repository is in read-only mode.
	ErrReadOnly = errors.New("repository is in read-only mode")

	// ErrInvalidSlug indicates the post ID is empty or not a safe relative path.
	ErrInvalidSlug = errors.New("invalid post slug")
)
