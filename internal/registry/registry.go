// Package registry maps short project identifiers to absolute directory
// paths. The mapping lives in a small JSON object on disk and is re-read on
// every call so a running watcher sees registrations made by another
// process.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/jsonc"

	"sentinel/internal/logging"
	"sentinel/internal/textfile"
)

var (
	// ErrConfig means the registry file exists but cannot be parsed.
	ErrConfig = errors.New("registry file is corrupt")
	// ErrUnknownProject means no project is registered under the id.
	ErrUnknownProject = errors.New("unknown project")
	// ErrInvalidPath means the path is empty or not an existing directory.
	ErrInvalidPath = errors.New("invalid project path")
)

// IDPrefix starts every project identifier.
const IDPrefix = "proj-"

// ProjectRecord is one registered project.
type ProjectRecord struct {
	ID   string
	Path string
}

// Registry is the file-backed project registry.
type Registry struct {
	path  string
	mu    sync.Mutex
	newID func() string
}

// New returns a registry persisted at path. The file need not exist.
func New(path string) *Registry {
	return &Registry{path: path, newID: randomID}
}

// Path returns the backing file.
func (r *Registry) Path() string { return r.path }

func randomID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return IDPrefix + hex[:4]
}

// Register records dir and returns its id. A directory that is already
// registered keeps its existing id.
func (r *Registry) Register(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	abs = filepath.Clean(abs)
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, abs)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return "", err
	}
	for id, p := range projects {
		if samePath(p, abs) {
			logging.RegistryDebug("%s already registered as %s", abs, id)
			return id, nil
		}
	}

	id := r.newID()
	for {
		if _, taken := projects[id]; !taken {
			break
		}
		id = r.newID()
	}
	projects[id] = abs

	if err := r.save(projects); err != nil {
		return "", err
	}
	logging.Registry("registered %s as %s", abs, id)
	return id, nil
}

// Resolve returns the directory registered under id.
func (r *Registry) Resolve(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return "", err
	}
	p, ok := projects[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProject, id)
	}
	return p, nil
}

// Projects returns every registered project sorted by id.
func (r *Registry) Projects() ([]ProjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]ProjectRecord, 0, len(projects))
	for id, p := range projects {
		out = append(out, ProjectRecord{ID: id, Path: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Registry) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	projects := make(map[string]string)
	if len(strings.TrimSpace(string(data))) == 0 {
		return projects, nil
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &projects); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, r.path, err)
	}
	return projects, nil
}

func (r *Registry) save(projects map[string]string) error {
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	if err := textfile.WriteAtomic(r.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
