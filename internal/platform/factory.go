package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/mulch/pkg/adapters/fs"
	"github.com/aretw0/mulch/pkg/core"
	"github.com/aretw0/mulch/pkg/index"
	"github.com/aretw0/mulch/pkg/scope"
)

// New creates a fully wired Mulch service.
//
// Composition happens through a scope tree: the root scope carries the
// logger and parsed options, and a child "site" scope provides the
// repository and service. Anything registered at the root stays visible to
// the site scope; a second site opened under the same root would get its
// own isolated child.
func New(path string, opts ...Option) (*core.Service, error) {
	root, err := Compose(path, opts...)
	if err != nil {
		return nil, err
	}

	site, err := root.Child("site")
	if err != nil {
		return nil, err
	}

	if err := wireSite(site, path); err != nil {
		return nil, err
	}

	return scope.ResolveAs[*core.Service](site, "service")
}

// Site bundles the resolved components of an opened site: the domain service
// and the in-memory front matter index built from a full listing.
type Site struct {
	Service *core.Service
	Index   *index.Index
}

// Open is like New but resolves the whole site scope, index included.
// Callers that only need CRUD should prefer New, which keeps the listing
// lazy; Open reads the site up front to build the chronological and tag
// views.
func Open(path string, opts ...Option) (*Site, error) {
	root, err := Compose(path, opts...)
	if err != nil {
		return nil, err
	}

	site, err := root.Child("site")
	if err != nil {
		return nil, err
	}

	if err := wireSite(site, path); err != nil {
		return nil, err
	}

	svc, err := scope.ResolveAs[*core.Service](site, "service")
	if err != nil {
		return nil, err
	}
	ix, err := scope.ResolveAs[*index.Index](site, "index")
	if err != nil {
		return nil, err
	}

	return &Site{Service: svc, Index: ix}, nil
}

// Compose builds the root scope holding cross-cutting components.
func Compose(path string, opts ...Option) (*scope.Scope, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	root := scope.New("mulch")
	if err := root.Register("options", o); err != nil {
		return nil, err
	}
	if o.logger != nil {
		if err := root.Register("logger", o.logger); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// wireSite binds the storage and domain components into a site scope.
// The repository and service are lazy: nothing touches the filesystem until
// the first resolve.
func wireSite(site *scope.Scope, path string) error {
	if err := site.Provide("repository", func(s *scope.Scope) (any, error) {
		o, err := scope.ResolveAs[*options](s, "options")
		if err != nil {
			return nil, err
		}
		return buildRepository(path, o)
	}); err != nil {
		return err
	}

	if err := site.Provide("service", func(s *scope.Scope) (any, error) {
		repo, err := scope.ResolveAs[core.Repository](s, "repository")
		if err != nil {
			return nil, err
		}
		return core.NewService(repo), nil
	}); err != nil {
		return err
	}

	return site.Provide("index", func(s *scope.Scope) (any, error) {
		repo, err := scope.ResolveAs[core.Repository](s, "repository")
		if err != nil {
			return nil, err
		}
		posts, err := repo.List(context.Background())
		if err != nil {
			return nil, err
		}
		ix := index.New()
		ix.Rebuild(posts)
		return ix, nil
	})
}

// Init initializes a new Mulch site based on the provided configuration.
// The 'uri' argument is adapter-specific (a directory path for 'fs').
//
// It returns the configured core.Repository.
func Init(uri string, opts ...Option) (core.Repository, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	// 1. Check for injected repository
	if o.repository != nil {
		return o.repository, nil
	}

	repo, err := buildRepository(uri, o)
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}

	return repo, nil
}

// buildRepository constructs (and initializes) the storage adapter from
// parsed options.
func buildRepository(uri string, o *options) (core.Repository, error) {
	if o.repository != nil {
		return o.repository, nil
	}

	switch o.adapter {
	case "fs":
		repo, err := initFS(uri, o)
		if err != nil {
			return nil, err
		}
		if err := repo.Initialize(context.Background()); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// initFS handles the initialization logic for the filesystem adapter.
func initFS(path string, o *options) (core.Repository, error) {
	autoInit, _ := o.config["auto_init"].(bool)
	gitless, _ := o.config["gitless"].(bool)
	tempDir, _ := o.config["temp_dir"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	strict, _ := o.config["strict"].(bool)
	systemDir, _ := o.config["system_dir"].(string)
	eventBuffer, _ := o.config["event_buffer"].(int)
	ignoreGlobs, _ := o.config["ignore_globs"].([]string)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))
	isReadOnly, _ := o.config["read_only"].(bool)

	// dev_safety defaults to true (safe) when not present.
	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}

	// Bypass safety if read-only (inherently safe) or explicitly disabled.
	bypassSafety := isReadOnly || !devSafety

	useTemp := tempDir || (IsDevRun() && !bypassSafety)
	resolvedPath := ResolveSitePath(path, useTemp)

	if IsDevRun() && o.logger != nil {
		if bypassSafety {
			if isReadOnly {
				o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolvedPath)
			} else {
				o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolvedPath)
			}
		} else {
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolvedPath)
		}
	}

	// Smart gitless detection: when not explicitly configured, infer from
	// the environment.
	if _, ok := o.config["gitless"]; !ok {
		gitPath := filepath.Join(resolvedPath, ".git")
		defaultSystemDir := ".mulch"
		if systemDir != "" {
			defaultSystemDir = systemDir
		}
		systemPath := filepath.Join(resolvedPath, defaultSystemDir)

		if _, err := os.Stat(gitPath); err == nil {
			// .git exists -> it's a Git site.
			gitless = false
		} else {
			if autoInit {
				// .mulch present without .git means an existing gitless
				// site; otherwise a fresh start defaults to Git.
				if _, err := os.Stat(systemPath); err == nil {
					gitless = true
				} else {
					gitless = false
				}
			} else {
				// Just opening a folder without .git: raw FS mode.
				gitless = true
			}

			if gitless && o.logger != nil {
				o.logger.Debug("auto-detected gitless mode", "reason", ".git missing")
			}
		}
	}

	if systemDir == "" {
		systemDir = ".mulch"
	}

	if o.logger != nil && useTemp {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolvedPath)
	}

	repoConfig := fs.Config{
		Path:         resolvedPath,
		AutoInit:     autoInit,
		Gitless:      gitless,
		MustExist:    mustExist || (!autoInit && !useTemp),
		Strict:       strict,
		ReadOnly:     isReadOnly,
		Logger:       o.logger,
		SystemDir:    systemDir,
		IgnoreGlobs:  ignoreGlobs,
		EventBuffer:  eventBuffer,
		ErrorHandler: errorHandler,
	}

	repo := fs.NewRepository(repoConfig)

	// Register custom serializers
	for ext, s := range o.serializers {
		ser, ok := s.(fs.Serializer)
		if !ok {
			return nil, fmt.Errorf("serializer for %q does not implement fs.Serializer", ext)
		}
		repo.RegisterSerializer(ext, ser)
	}

	return repo, nil
}
