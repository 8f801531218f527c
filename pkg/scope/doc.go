// Package scope implements a hierarchical component container.
//
// A Scope holds named components and may have exactly one parent, fixed at
// construction via Child. Components registered in a parent are visible to
// every descendant; sibling scopes are fully isolated from each other. A
// child registration with the same name shadows the parent's.
//
// Components can be registered eagerly (Register) or lazily (Provide).
// Lazy constructors run at most once; the resulting value is cached in the
// scope that declared it.
//
// Mulch uses a scope tree as its own composition root: the platform factory
// registers the logger and configuration in a root scope and builds the
// repository, service and index inside a child site scope.
package scope
