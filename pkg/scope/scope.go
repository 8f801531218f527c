package scope

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Constructor builds a component lazily. It receives the scope the
// constructor was registered on, so it can resolve its own dependencies
// (including ones inherited from ancestors).
type Constructor func(s *Scope) (any, error)

// binding is a single named component slot.
type binding struct {
	value any
	ctor  Constructor
	built bool

	// Build-in-progress bookkeeping. owner is the goroutine running the
	// constructor: only that goroutine resolving the same name again is a
	// cycle; everyone else waits on done.
	building bool
	owner    uint64
	done     chan struct{}
}

// Scope is a node in the container hierarchy.
// The zero value is not usable; create roots with New and children with Child.
type Scope struct {
	name   string
	parent *Scope

	mu       sync.Mutex
	bindings map[string]*binding
	children []*Scope
	closed   bool
}

// New creates a root scope with no parent.
func New(name string) *Scope {
	return &Scope{
		name:     name,
		bindings: make(map[string]*binding),
	}
}

// Name returns the scope's own name.
func (s *Scope) Name() string { return s.name }

// Parent returns the parent scope, or nil for a root.
func (s *Scope) Parent() *Scope { return s.parent }

// Path returns the slash-joined names from the root down to this scope.
func (s *Scope) Path() string {
	var parts []string
	for cur := s; cur != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Child creates a new scope with this scope as its single, immutable parent.
func (s *Scope) Child(name string) (*Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.Wrapf(ErrClosed, "cannot create child %q of %s", name, s.Path())
	}

	child := &Scope{
		name:     name,
		parent:   s,
		bindings: make(map[string]*binding),
	}
	s.children = append(s.children, child)
	return child, nil
}

// Register binds an already-constructed component under name.
// Registering a name bound in an ancestor shadows it for this scope and its
// descendants; registering a name already bound locally fails.
func (s *Scope) Register(name string, value any) error {
	return s.bind(name, &binding{value: value, built: true})
}

// Provide binds a lazy constructor under name. The constructor runs on first
// Resolve and its result is cached.
func (s *Scope) Provide(name string, ctor Constructor) error {
	if ctor == nil {
		return errors.Errorf("nil constructor for %q", name)
	}
	return s.bind(name, &binding{ctor: ctor})
}

func (s *Scope) bind(name string, b *binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Wrapf(ErrClosed, "cannot register %q in %s", name, s.Path())
	}
	if _, exists := s.bindings[name]; exists {
		return errors.Wrapf(ErrDuplicate, "%q in scope %s", name, s.Path())
	}
	s.bindings[name] = b
	return nil
}

// Resolve looks up a component by name, checking this scope first and then
// walking up the parent chain. Sibling scopes are never consulted.
func (s *Scope) Resolve(name string) (any, error) {
	for cur := s; cur != nil; cur = cur.parent {
		value, found, err := cur.resolveLocal(name)
		if err != nil {
			return nil, err
		}
		if found {
			return value, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%q in scope %s", name, s.Path())
}

// resolveLocal resolves a binding declared directly on s, constructing it if
// needed. It reports found=false when s has no binding for name.
//
// A constructor resolving its own name (directly or through a chain of other
// constructors on the same goroutine) is a cycle. A different goroutine
// arriving while the constructor runs is not: it waits for the build to
// finish and then reuses the result, or retries when the build failed.
func (s *Scope) resolveLocal(name string) (value any, found bool, err error) {
	gid := goroutineID()

	for {
		s.mu.Lock()

		if s.closed {
			s.mu.Unlock()
			return nil, false, errors.Wrapf(ErrClosed, "resolving %q in %s", name, s.Path())
		}

		b, ok := s.bindings[name]
		if !ok {
			s.mu.Unlock()
			return nil, false, nil
		}
		if b.built {
			s.mu.Unlock()
			return b.value, true, nil
		}
		if b.building {
			if b.owner == gid {
				s.mu.Unlock()
				return nil, false, errors.Wrapf(ErrCycle, "while building %q in %s", name, s.Path())
			}
			done := b.done
			s.mu.Unlock()
			<-done
			continue
		}

		// Run the constructor outside the lock: it is allowed to resolve
		// other components from this same scope.
		b.building = true
		b.owner = gid
		b.done = make(chan struct{})
		s.mu.Unlock()

		v, err := b.ctor(s)

		s.mu.Lock()
		b.building = false
		close(b.done)
		if err != nil {
			s.mu.Unlock()
			return nil, false, errors.Wrapf(err, "building %q in %s", name, s.Path())
		}
		b.value = v
		b.built = true
		s.mu.Unlock()
		return v, true, nil
	}
}

// goroutineID extracts the current goroutine's id from the stack header
// ("goroutine 123 [running]:"). Used only to tell a re-entrant resolve apart
// from a concurrent one.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Has reports whether name resolves in this scope or any ancestor, without
// triggering lazy construction.
func (s *Scope) Has(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		_, ok := cur.bindings[name]
		closed := cur.closed
		cur.mu.Unlock()
		if closed {
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// MustResolve is like Resolve but panics on error. Intended for composition
// roots where a missing component is a programming error.
func (s *Scope) MustResolve(name string) any {
	v, err := s.Resolve(name)
	if err != nil {
		panic(fmt.Sprintf("scope: %v", err))
	}
	return v
}

// Close tears the scope down: children are closed first (in reverse creation
// order), then built components implementing io.Closer are closed. Further
// operations on the scope fail with ErrClosed. Close is idempotent.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	children := s.children
	bindings := s.bindings
	s.mu.Unlock()

	var firstErr error

	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for name, b := range bindings {
		if !b.built {
			continue
		}
		if closer, ok := b.value.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = errors.Wrapf(err, "closing %q in %s", name, s.Path())
			}
		}
	}

	return firstErr
}

// ResolveAs resolves name and asserts it to T.
func ResolveAs[T any](s *Scope, name string) (T, error) {
	var zero T
	v, err := s.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.Errorf("component %q in %s is %T, not %T", name, s.Path(), v, zero)
	}
	return typed, nil
}
