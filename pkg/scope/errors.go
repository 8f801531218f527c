package scope

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a component cannot be resolved in the
	// scope or any of its ancestors.
	ErrNotFound = errors.New("component not found")

	// ErrDuplicate is returned when registering a name already bound in the
	// same scope. Shadowing a parent binding is allowed; rebinding locally
	// is not.
	ErrDuplicate = errors.New("component already registered")

	// ErrClosed is returned for any operation on a closed scope.
	ErrClosed = errors.New("scope is closed")

	// ErrCycle is returned when lazy constructors form a dependency cycle.
	ErrCycle = errors.New("constructor cycle detected")
)
