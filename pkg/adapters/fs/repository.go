package fs

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/mulch/pkg/core"
	"github.com/aretw0/mulch/pkg/git"
)

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path         string
	AutoInit     bool
	Gitless      bool
	MustExist    bool
	Strict       bool
	ReadOnly     bool
	Logger       *slog.Logger
	SystemDir    string // e.g. ".mulch"
	IgnoreGlobs  []string
	EventBuffer  int
	ErrorHandler func(error)
}

// Repository implements core.Repository using the filesystem and Git.
// Posts are Markdown files with YAML front matter; the slug is the file path
// relative to the site root, without the extension.
type Repository struct {
	Path   string
	git    *git.Client
	cache  *cache
	config Config

	serializers map[string]Serializer

	mu            sync.RWMutex
	watcherActive bool
	lastReconcile *time.Time
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = ".mulch"
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 100
	}
	return &Repository{
		Path:        config.Path,
		git:         git.NewClient(config.Path, config.SystemDir+".lock", config.Logger),
		config:      config,
		cache:       newCache(config.Path, config.SystemDir),
		serializers: DefaultSerializers(config.Strict),
	}
}

// RegisterSerializer installs a custom serializer for an extension.
func (r *Repository) RegisterSerializer(ext string, s Serializer) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.serializers[ext] = s
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	return NewTransaction(r), nil
}

// Initialize performs the necessary setup for the repository (mkdir, git init).
func (r *Repository) Initialize(ctx context.Context) error {
	// 1. Directory Initialization
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("site path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("site path is not a directory: %s", r.Path)
		}
	} else if !r.config.ReadOnly {
		if err := os.MkdirAll(r.Path, 0755); err != nil {
			return fmt.Errorf("failed to create site directory: %w", err)
		}
	}

	// 2. Git Initialization
	if !r.config.Gitless && !r.config.ReadOnly {
		if !git.IsInstalled() {
			return fmt.Errorf("git is not installed")
		}

		wasNewRepo := false
		if !r.git.IsRepo() {
			if r.config.AutoInit {
				if err := r.git.Init(); err != nil {
					return fmt.Errorf("failed to git init: %w", err)
				}
				wasNewRepo = true
			} else {
				return fmt.Errorf("path is not a git repository: %s", r.Path)
			}
		}

		// Ensure .gitignore has the system directory
		mod, err := r.ensureIgnore()
		if err != nil {
			return fmt.Errorf("failed to ensure .gitignore: %w", err)
		}

		if mod && wasNewRepo {
			// If we just created the repo, commit the .gitignore to start clean
			if err := r.git.Add(".gitignore"); err != nil {
				return fmt.Errorf("failed to add .gitignore: %w", err)
			}
			if err := r.git.Commit(fmt.Sprintf("chore: configure %s ignore", r.config.SystemDir)); err != nil {
				return fmt.Errorf("failed to commit .gitignore: %w", err)
			}
		}
	}

	return nil
}

func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	ignoreEntry := r.config.SystemDir + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	lines := strings.Split(string(content), "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == ignoreEntry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}

	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return false, err
	}

	return true, nil
}

// Sync synchronizes the repository with its remote.
func (r *Repository) Sync(ctx context.Context) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if r.config.Gitless {
		return fmt.Errorf("cannot sync in gitless mode")
	}

	if !r.git.IsRepo() {
		return fmt.Errorf("path is not a git repository: %s", r.Path)
	}

	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	return r.git.Sync()
}

// filenameFor maps a slug to its on-disk filename.
func (r *Repository) filenameFor(id string) string {
	if filepath.Ext(id) != "" {
		return id
	}
	return id + ".md"
}

// serializerFor returns the serializer for a file extension.
func (r *Repository) serializerFor(ext string) (Serializer, bool) {
	s, ok := r.serializers[ext]
	return s, ok
}

// Save persists a post to the filesystem and commits it to Git.
//
// Workflow:
//  1. Validate the slug and resolve the target filename.
//  2. Create parent directories.
//  3. Serialize front matter + body and write atomically to disk.
//  4. Refresh the metadata cache entry.
//  5. (If Git enabled) 'git add' and 'git commit' with the change reason
//     from the context, if any.
func (r *Repository) Save(ctx context.Context, p core.Post) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if p.ID == "" {
		return fmt.Errorf("post has no slug: %w", core.ErrInvalidSlug)
	}

	filename := r.filenameFor(p.ID)
	ext := filepath.Ext(filename)

	ser, ok := r.serializerFor(ext)
	if !ok {
		return fmt.Errorf("no serializer for extension %q", ext)
	}

	fullPath := filepath.Join(r.Path, filename)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	data, err := ser.Serialize(p)
	if err != nil {
		return fmt.Errorf("failed to serialize post: %w", err)
	}

	if err := writeFileAtomic(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	relPath := filepath.ToSlash(filename)
	if info, err := os.Stat(fullPath); err == nil {
		r.cache.Set(relPath, entryFromPost(p, checksum(data), info.ModTime()))
		if err := r.cache.Save(); err != nil && r.config.Logger != nil {
			r.config.Logger.Debug("cache save failed", "error", err)
		}
	}

	if !r.config.Gitless {
		unlock, err := r.git.Lock()
		if err != nil {
			return fmt.Errorf("failed to acquire git lock: %w", err)
		}
		defer unlock()

		if err := r.git.Add(filename); err != nil {
			return fmt.Errorf("failed to git add: %w", err)
		}

		msg := "update " + p.ID
		if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
			msg = val
		}

		if err := r.git.Commit(msg); err != nil {
			return fmt.Errorf("failed to git commit: %w", err)
		}
	}

	return nil
}

// Get retrieves a post from the filesystem.
func (r *Repository) Get(ctx context.Context, id string) (core.Post, error) {
	candidates := []string{id}
	if filepath.Ext(id) == "" {
		candidates = []string{id + ".md", id + ".markdown"}
	}

	for _, filename := range candidates {
		fullPath := filepath.Join(r.Path, filename)

		f, err := os.Open(fullPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return core.Post{}, err
		}

		ext := filepath.Ext(filename)
		ser, ok := r.serializerFor(ext)
		if !ok {
			f.Close()
			return core.Post{}, fmt.Errorf("no serializer for extension %q", ext)
		}

		p, err := ser.Parse(f)
		f.Close()
		if err != nil {
			return core.Post{}, fmt.Errorf("failed to parse post %s: %w", id, err)
		}
		p.ID = id
		return *p, nil
	}

	return core.Post{}, fmt.Errorf("%s: %w", id, core.ErrNotFound)
}

// Delete removes a post file and commits the removal.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}

	filename := r.filenameFor(id)
	fullPath := filepath.Join(r.Path, filename)

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", id, core.ErrNotFound)
		}
		return err
	}

	r.cache.Delete(filepath.ToSlash(filename))
	if err := r.cache.Save(); err != nil && r.config.Logger != nil {
		r.config.Logger.Debug("cache save failed", "error", err)
	}

	if !r.config.Gitless {
		unlock, err := r.git.Lock()
		if err != nil {
			return fmt.Errorf("failed to acquire git lock: %w", err)
		}
		defer unlock()

		if err := r.git.Rm(filename); err != nil {
			return fmt.Errorf("failed to git rm: %w", err)
		}

		msg := "delete " + id
		if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
			msg = val
		}

		if err := r.git.Commit(msg); err != nil {
			return fmt.Errorf("failed to git commit: %w", err)
		}
	}

	return nil
}

// List scans the site directory for all posts.
//
// Strategy:
//  1. Load the existing metadata cache from disk.
//  2. Walk the directory tree (skipping .git, system and hidden dirs).
//  3. For each post file, compare mtime + content checksum against the
//     cache. On a hit the cached front matter is used; on a miss the file
//     is parsed and the cache updated.
//  4. Prune stale entries and save the cache back to disk.
func (r *Repository) List(ctx context.Context) ([]core.Post, error) {
	if err := r.cache.Load(); err != nil && r.config.Logger != nil {
		r.config.Logger.Debug("cache load failed, rescanning", "error", err)
	}

	var posts []core.Post
	seen := make(map[string]bool)

	err := filepath.WalkDir(r.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			name := d.Name()
			if path != r.Path && (name == ".git" || name == r.config.SystemDir || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(d.Name())
		ser, ok := r.serializerFor(ext)
		if !ok {
			return nil
		}

		relPath, err := filepath.Rel(r.Path, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if r.ignored(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		mtime := info.ModTime()

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		sum := checksum(data)

		id := strings.TrimSuffix(relPath, ext)
		seen[relPath] = true

		if entry, hit := r.cache.Get(relPath, mtime, sum); hit {
			posts = append(posts, entry.post())
			return nil
		}

		p, err := ser.Parse(bytes.NewReader(data))
		if err != nil {
			if r.config.Logger != nil {
				r.config.Logger.Debug("skipping unparseable post", "path", relPath, "error", err)
			}
			return nil
		}
		p.ID = id

		r.cache.Set(relPath, entryFromPost(*p, sum, mtime))
		posts = append(posts, *p)
		return nil
	})

	if err != nil {
		return nil, err
	}

	r.cache.Prune(seen)
	if !r.config.ReadOnly {
		if err := r.cache.Save(); err != nil && r.config.Logger != nil {
			r.config.Logger.Debug("cache save failed", "error", err)
		}
	}

	return posts, nil
}

// ignored reports whether relPath matches any configured ignore glob.
func (r *Repository) ignored(relPath string) bool {
	for _, glob := range r.config.IgnoreGlobs {
		if ok, err := doublestar.Match(glob, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// entryFromPost builds a cache entry from parsed front matter.
func entryFromPost(p core.Post, sum uint64, mtime time.Time) *indexEntry {
	entry := &indexEntry{
		ID:           p.ID,
		Title:        p.Title(),
		Tags:         p.Tags(),
		Draft:        p.Draft(),
		Series:       p.Series(),
		Checksum:     sum,
		LastModified: mtime,
	}
	if date, ok := p.Date(); ok {
		entry.Date = date.Format(time.RFC3339)
	}
	return entry
}

// post reconstructs a skeletal Post (front matter only, no body) from a
// cache entry. List returns these on cache hits; Get always reads the file.
func (e *indexEntry) post() core.Post {
	metadata := core.Metadata{}
	if e.Title != "" {
		metadata[core.KeyTitle] = e.Title
	}
	if e.Date != "" {
		metadata[core.KeyDate] = e.Date
	}
	if len(e.Tags) > 0 {
		metadata[core.KeyTags] = e.Tags
	}
	if e.Draft {
		metadata[core.KeyDraft] = true
	}
	if e.Series != "" {
		metadata[core.KeySeries] = e.Series
	}
	return core.Post{ID: e.ID, Metadata: metadata}
}

// Reconcile diffs the on-disk state against the metadata cache and returns
// synthetic events for anything that changed while the watcher was paused
// (e.g. during git operations). The cache is updated in the process.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	before := make(map[string]*indexEntry)
	r.cache.Range(func(relPath string, entry *indexEntry) bool {
		before[relPath] = entry
		return true
	})

	var events []core.Event
	seen := make(map[string]bool)
	now := time.Now().Unix()

	err := filepath.WalkDir(r.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != r.Path && (name == ".git" || name == r.config.SystemDir || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(d.Name())
		ser, ok := r.serializerFor(ext)
		if !ok {
			return nil
		}

		relPath, err := filepath.Rel(r.Path, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if r.ignored(relPath) {
			return nil
		}
		seen[relPath] = true

		info, err := d.Info()
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		sum := checksum(data)
		id := strings.TrimSuffix(relPath, ext)

		prev, existed := before[relPath]
		if existed && prev.LastModified.Equal(info.ModTime()) && prev.Checksum == sum {
			return nil
		}

		p, err := ser.Parse(bytes.NewReader(data))
		if err != nil {
			return nil
		}
		p.ID = id
		r.cache.Set(relPath, entryFromPost(*p, sum, info.ModTime()))

		eType := core.EventModify
		if !existed {
			eType = core.EventCreate
		}
		events = append(events, core.Event{Type: eType, ID: id, Timestamp: now})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for relPath, entry := range before {
		if !seen[relPath] {
			r.cache.Delete(relPath)
			events = append(events, core.Event{Type: core.EventDelete, ID: entry.ID, Timestamp: now})
		}
	}

	if !r.config.ReadOnly {
		if err := r.cache.Save(); err != nil && r.config.Logger != nil {
			r.config.Logger.Debug("cache save failed", "error", err)
		}
	}

	r.recordReconcile()
	return events, nil
}

// Watch starts a filesystem watcher and returns the event channel.
// The channel is closed when ctx is cancelled or the worker stops.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	events := make(chan core.Event, r.config.EventBuffer)

	worker := newWatchWorker(r, pattern, events)
	if err := worker.Start(ctx); err != nil {
		return nil, err
	}

	return events, nil
}

// mapEventType translates an fsnotify op into a domain event type.
// An empty string means the event should be ignored.
func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	default:
		return ""
	}
}

// resolveID maps an absolute event path back to a post slug.
func (r *Repository) resolveID(path string) (string, error) {
	relPath, err := filepath.Rel(r.Path, path)
	if err != nil {
		return "", err
	}
	relPath = filepath.ToSlash(relPath)
	ext := filepath.Ext(relPath)
	if _, ok := r.serializerFor(ext); !ok {
		return "", fmt.Errorf("unsupported extension %q", ext)
	}
	return strings.TrimSuffix(relPath, ext), nil
}

// shouldIgnore filters watcher events that do not correspond to posts.
func (r *Repository) shouldIgnore(name, pattern string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, TempFilePrefix) || strings.HasPrefix(base, ".") {
		return true
	}

	relPath, err := filepath.Rel(r.Path, name)
	if err != nil {
		return true
	}
	relPath = filepath.ToSlash(relPath)

	for _, part := range strings.Split(relPath, "/") {
		if part == ".git" || part == r.config.SystemDir {
			return true
		}
	}

	if _, ok := r.serializerFor(filepath.Ext(relPath)); !ok {
		return true
	}

	if r.ignored(relPath) {
		return true
	}

	if pattern != "" {
		ok, err := doublestar.Match(pattern, relPath)
		if err != nil || !ok {
			return true
		}
	}

	return false
}

var _ core.Repository = (*Repository)(nil)
var _ core.Transactional = (*Repository)(nil)
var _ core.Syncable = (*Repository)(nil)
var _ core.Watchable = (*Repository)(nil)
