// Package mulch is the Composition Root for the Mulch content engine.
//
// It connects the core business logic (Domain Layer) with the infrastructure
// adapters (Persistence Layer) using the Hexagonal Architecture pattern.
//
// Philosophy:
//
// Mulch treats a directory of blog posts (Markdown files with YAML front
// matter) as a transactional database with Git as its history. The core is
// agnostic to storage; the default adapter uses the File System and Git.
//
// Features:
//
//   - **Hexagonal Architecture**: Core domain is isolated from persistence details.
//   - **Transactional Safe**: Atomic operations regardless of the underlying storage.
//   - **Front Matter First**: Native parsing and indexing of title/date/tags metadata.
//   - **Hierarchical Scopes**: The engine composes itself through `pkg/scope`,
//     a parent/child component container with ancestor visibility and sibling
//     isolation.
//   - **Typed Retrieval**: Generic wrapper for type-safe front matter access.
//   - **Link Audit**: Internal Markdown links are checked against the site.
//
// Usage:
//
//	// Initialize service with functional options
//	site, err := mulch.New("./content",
//		mulch.WithAutoInit(true),
//		mulch.WithLogger(logger),
//	)
//
//	// Save a post
//	err := site.SavePost(ctx, "hello-world", "Welcome!", nil)
package mulch
