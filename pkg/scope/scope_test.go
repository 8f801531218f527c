package scope_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/mulch/pkg/scope"
)

func TestResolve_ParentVisibility(t *testing.T) {
	root := scope.New("root")
	if err := root.Register("db", "shared-db"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	child, err := root.Child("web")
	if err != nil {
		t.Fatalf("Child failed: %v", err)
	}

	v, err := child.Resolve("db")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if v != "shared-db" {
		t.Errorf("expected 'shared-db', got %v", v)
	}
}

func TestResolve_SiblingIsolation(t *testing.T) {
	root := scope.New("root")

	a, _ := root.Child("a")
	b, _ := root.Child("b")

	if err := a.Register("secret", 42); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// b must not see a's component, only the shared ancestors.
	_, err := b.Resolve("secret")
	if !errors.Is(err, scope.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if b.Has("secret") {
		t.Error("Has should not see a sibling's component")
	}
}

func TestResolve_Shadowing(t *testing.T) {
	root := scope.New("root")
	root.Register("logger", "root-logger")

	child, _ := root.Child("child")
	if err := child.Register("logger", "child-logger"); err != nil {
		t.Fatalf("shadowing an ancestor binding should be allowed: %v", err)
	}

	v, _ := child.Resolve("logger")
	if v != "child-logger" {
		t.Errorf("child should resolve its own binding, got %v", v)
	}

	v, _ = root.Resolve("logger")
	if v != "root-logger" {
		t.Errorf("root binding must be untouched, got %v", v)
	}
}

func TestRegister_DuplicateLocal(t *testing.T) {
	root := scope.New("root")
	root.Register("x", 1)

	err := root.Register("x", 2)
	if !errors.Is(err, scope.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestChild_SingleImmutableParent(t *testing.T) {
	root := scope.New("root")
	child, _ := root.Child("child")

	if child.Parent() != root {
		t.Error("child should report root as its parent")
	}
	if root.Parent() != nil {
		t.Error("root should have no parent")
	}
	if got := child.Path(); got != "root/child" {
		t.Errorf("unexpected path: %q", got)
	}
}

func TestProvide_LazyConstructedOnce(t *testing.T) {
	root := scope.New("root")

	calls := 0
	root.Provide("expensive", func(s *scope.Scope) (any, error) {
		calls++
		return "built", nil
	})

	if calls != 0 {
		t.Fatal("constructor must not run before Resolve")
	}

	for i := 0; i < 3; i++ {
		v, err := root.Resolve("expensive")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if v != "built" {
			t.Errorf("unexpected value: %v", v)
		}
	}

	if calls != 1 {
		t.Errorf("expected constructor to run once, ran %d times", calls)
	}
}

func TestProvide_ConstructorResolvesDependencies(t *testing.T) {
	root := scope.New("root")
	root.Register("dsn", "file::memory:")
	root.Provide("db", func(s *scope.Scope) (any, error) {
		dsn, err := s.Resolve("dsn")
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("conn(%s)", dsn), nil
	})

	v, err := root.Resolve("db")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if v != "conn(file::memory:)" {
		t.Errorf("unexpected value: %v", v)
	}
}

func TestProvide_CycleDetection(t *testing.T) {
	root := scope.New("root")
	root.Provide("a", func(s *scope.Scope) (any, error) {
		return s.Resolve("b")
	})
	root.Provide("b", func(s *scope.Scope) (any, error) {
		return s.Resolve("a")
	})

	_, err := root.Resolve("a")
	if !errors.Is(err, scope.ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestProvide_ConstructorError(t *testing.T) {
	root := scope.New("root")
	boom := errors.New("boom")
	root.Provide("broken", func(s *scope.Scope) (any, error) {
		return nil, boom
	})

	_, err := root.Resolve("broken")
	if !errors.Is(err, boom) {
		t.Errorf("expected constructor error, got %v", err)
	}

	// A failed build is not cached; the constructor may be retried.
	_, err = root.Resolve("broken")
	if !errors.Is(err, boom) {
		t.Errorf("expected constructor error on retry, got %v", err)
	}
}

func TestHas_DoesNotTriggerConstruction(t *testing.T) {
	root := scope.New("root")

	calls := 0
	root.Provide("lazy", func(s *scope.Scope) (any, error) {
		calls++
		return nil, nil
	})

	if !root.Has("lazy") {
		t.Error("Has should report a provided binding")
	}
	if calls != 0 {
		t.Error("Has must not run the constructor")
	}
	if root.Has("ghost") {
		t.Error("Has should not report unknown names")
	}
}

func TestMustResolve_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustResolve to panic on missing component")
		}
	}()
	scope.New("root").MustResolve("ghost")
}

type fakeCloser struct {
	mu     sync.Mutex
	closed []string
	name   string
}

func (f *fakeCloser) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, f.name)
	return nil
}

func TestClose_Cascade(t *testing.T) {
	root := scope.New("root")
	child, _ := root.Child("child")

	closer := &fakeCloser{name: "repo"}
	child.Register("repo", closer)

	if err := root.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(closer.closed) != 1 {
		t.Error("expected child's component to be closed via the root")
	}

	// Everything fails after close.
	if _, err := root.Child("late"); !errors.Is(err, scope.ErrClosed) {
		t.Errorf("expected ErrClosed from Child, got %v", err)
	}
	if err := child.Register("late", 1); !errors.Is(err, scope.ErrClosed) {
		t.Errorf("expected ErrClosed from Register, got %v", err)
	}
	if _, err := child.Resolve("repo"); !errors.Is(err, scope.ErrClosed) {
		t.Errorf("expected ErrClosed from Resolve, got %v", err)
	}

	// Idempotent.
	if err := root.Close(context.Background()); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestClose_SkipsUnbuilt(t *testing.T) {
	root := scope.New("root")

	calls := 0
	root.Provide("never", func(s *scope.Scope) (any, error) {
		calls++
		return &fakeCloser{name: "never"}, nil
	})

	if err := root.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if calls != 0 {
		t.Error("Close must not construct unbuilt components")
	}
}

func TestResolveAs(t *testing.T) {
	root := scope.New("root")
	root.Register("count", 7)

	n, err := scope.ResolveAs[int](root, "count")
	if err != nil {
		t.Fatalf("ResolveAs failed: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}

	_, err = scope.ResolveAs[string](root, "count")
	if err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestProvide_ConcurrentFirstResolve(t *testing.T) {
	root := scope.New("root")

	var calls int32
	root.Provide("slow", func(s *scope.Scope) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		return "ready", nil
	})

	// Several goroutines race the first resolve. Latecomers must wait for
	// the in-flight construction, not report a cycle.
	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := root.Resolve("slow")
			if err != nil {
				results[i] = err
				return
			}
			if v != "ready" {
				t.Errorf("goroutine %d got %v", i, v)
			}
		}(i)
	}
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Errorf("goroutine %d: unexpected error: %v", i, err)
		}
		if errors.Is(results[i], scope.ErrCycle) {
			t.Errorf("goroutine %d: spurious cycle with no cycle present", i)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected one construction, got %d", got)
	}
}

func TestResolve_Concurrent(t *testing.T) {
	root := scope.New("root")

	calls := 0
	var once sync.Mutex
	root.Provide("shared", func(s *scope.Scope) (any, error) {
		once.Lock()
		calls++
		once.Unlock()
		return "v", nil
	})

	// First resolve builds; concurrent readers afterwards must be safe.
	if _, err := root.Resolve("shared"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := root.Resolve("shared"); err != nil {
				t.Errorf("concurrent Resolve failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected one construction, got %d", calls)
	}
}
