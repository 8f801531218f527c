package mulch

import (
	"log/slog"

	"github.com/aretw0/mulch/internal/platform"
	"github.com/aretw0/mulch/pkg/core"
	"github.com/aretw0/mulch/pkg/index"
	"github.com/aretw0/mulch/pkg/scope"
	"github.com/aretw0/mulch/pkg/typed"
)

// --- Types ---

// PostModel is a public alias for the typed post model.
type PostModel[T any] = typed.PostModel[T]

// TypedRepository is a public alias for the typed repository.
type TypedRepository[T any] = typed.Repository[T]

// TypedService is a public alias for the typed service.
type TypedService[T any] = typed.Service[T]

// FrontMatter is the canonical typed front matter for blog posts.
type FrontMatter = typed.FrontMatter

// Scope is a public alias for the hierarchical component container.
type Scope = scope.Scope

// Site bundles a service with the in-memory front matter index.
type Site = platform.Site

// IndexEntry is the indexed view of a post's front matter.
type IndexEntry = index.Entry

// --- Configuration ---

// Option defines a functional option for configuring Mulch.
type Option = platform.Option

// WithAutoInit enables automatic initialization of the site (creates directory and git init).
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables version control (e.g. Git).
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the site directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter allows specifying the storage adapter to use by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".mulch").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithEventBuffer allows specifying the size of the watch event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithStrict enables strict number parsing in front matter.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithIgnore adds glob patterns for paths to skip when listing and watching.
func WithIgnore(globs ...string) Option {
	return platform.WithIgnore(globs...)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the sandbox safety mechanism under `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithWatcherErrorHandler registers a callback for watcher runtime errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New creates a new Mulch Service.
func New(path string, opts ...Option) (*core.Service, error) {
	return platform.New(path, opts...)
}

// Open creates a Service together with the site's front matter index.
// Unlike New it reads the site eagerly to populate the index.
func Open(path string, opts ...Option) (*Site, error) {
	return platform.Open(path, opts...)
}

// Init initializes a repository explicitly.
func Init(path string, opts ...Option) (core.Repository, error) {
	return platform.Init(path, opts...)
}

// NewScope creates a root scope for custom composition trees.
func NewScope(name string) *Scope {
	return scope.New(name)
}

// --- Typed Factories ---

// NewTypedRepository creates a type-safe wrapper around an existing repository.
func NewTypedRepository[T any](repo core.Repository) *typed.Repository[T] {
	return typed.NewRepository[T](repo)
}

// NewTypedService creates a type-safe wrapper around an existing service.
func NewTypedService[T any](svc *core.Service) *typed.Service[T] {
	return typed.NewService[T](svc)
}

// OpenTypedRepository simplifies creating a TypedRepository from a path.
func OpenTypedRepository[T any](path string, opts ...Option) (*typed.Repository[T], error) {
	repo, err := Init(path, opts...)
	if err != nil {
		return nil, err
	}
	return typed.NewRepository[T](repo), nil
}

// OpenTypedService simplifies creating a TypedService from a path.
func OpenTypedService[T any](path string, opts ...Option) (*typed.Service[T], error) {
	svc, err := New(path, opts...)
	if err != nil {
		return nil, err
	}
	return typed.NewService[T](svc), nil
}

// --- Operations ---

// Sync performs a synchronization (pull/push) of the site.
func Sync(path string, opts ...Option) error {
	return platform.Sync(path, opts...)
}

// --- Safety & Utils ---

// ResolveSitePath determines the actual path for the site based on safety rules.
func ResolveSitePath(userPath string, forceTemp bool) string {
	return platform.ResolveSitePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindSiteRoot recursively looks upwards for a site root indicator.
func FindSiteRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// --- Semantic Commits ---

const (
	CommitTypeFeat     = platform.CommitTypeFeat
	CommitTypeFix      = platform.CommitTypeFix
	CommitTypeDocs     = platform.CommitTypeDocs
	CommitTypeStyle    = platform.CommitTypeStyle
	CommitTypeRefactor = platform.CommitTypeRefactor
	CommitTypePerf     = platform.CommitTypePerf
	CommitTypeTest     = platform.CommitTypeTest
	CommitTypeChore    = platform.CommitTypeChore
)

// FormatChangeReason builds a Conventional Commit message.
func FormatChangeReason(ctype, scope, subject, body string) string {
	return platform.FormatChangeReason(ctype, scope, subject, body)
}

// AppendFooter appends the Mulch footer to an arbitrary message.
func AppendFooter(msg string) string {
	return platform.AppendFooter(msg)
}
