package scope

import (
	"sort"

	"github.com/aretw0/introspection"
)

// ScopeState exposes the scope tree for observability.
type ScopeState struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Components []string `json:"components,omitempty"`
	Children   []string `json:"children,omitempty"`
	Closed     bool     `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Scope) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	components := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		components = append(components, name)
	}
	sort.Strings(components)

	children := make([]string, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, c.name)
	}

	return ScopeState{
		Name:       s.name,
		Path:       s.Path(),
		Components: components,
		Children:   children,
		Closed:     s.closed,
	}
}

// ComponentType implements introspection.Component.
func (s *Scope) ComponentType() string {
	return "scope"
}

var _ introspection.Introspectable = (*Scope)(nil)
var _ introspection.Component = (*Scope)(nil)
