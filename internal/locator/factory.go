package locator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sentinel/internal/logging"
)

// Factory routes files to the Locator registered for their extension.
type Factory struct {
	mu       sync.RWMutex
	locators map[string]Locator // extension -> locator
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{locators: make(map[string]Locator)}
}

// DefaultFactory returns a Factory with every built-in locator registered.
func DefaultFactory() *Factory {
	f := NewFactory()
	f.Register(NewPythonLocator())
	f.Register(NewGoLocator())
	f.Register(NewJavaScriptLocator())
	f.Register(NewRustLocator())
	return f
}

// Register adds a locator for its supported extensions, replacing any
// existing registration.
func (f *Factory) Register(l Locator) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ext := range l.SupportedExtensions() {
		ext = normalizeExtension(ext)
		logging.AnchorDebug("locator: registering %s for %s", l.Language(), ext)
		f.locators[ext] = l
	}
}

// Get returns the locator for path, or nil.
func (f *Factory) Get(path string) Locator {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.locators[normalizeExtension(filepath.Ext(path))]
}

// Has reports whether path has a locator.
func (f *Factory) Has(path string) bool {
	return f.Get(path) != nil
}

// Locate finds declarations in content using the locator for path.
func (f *Factory) Locate(path string, content []byte) ([]Declaration, error) {
	l := f.Get(path)
	if l == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoLocator, filepath.Ext(path))
	}
	return l.Locate(path, content)
}

// Extensions lists registered extensions, sorted.
func (f *Factory) Extensions() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	exts := make([]string, 0, len(f.locators))
	for ext := range f.locators {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
