package persona

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"journeyagent/internal/logging"
)

// libraryFile is the on-disk shape of the persona library YAML file: a
// flat list under a top-level key, the same struct-per-concern style the
// teacher's config packages use for list-shaped settings.
type libraryFile struct {
	Personas []Persona `yaml:"personas"`
}

// Library holds the loaded persona set, keyed by slug, and watches its
// source file for changes.
type Library struct {
	mu       sync.RWMutex
	path     string
	byslug   map[string]Persona
	watcher  *fsnotify.Watcher
	onReload []func()
}

// LoadLibrary reads path once and starts watching it for changes. A
// missing file yields an empty library rather than an error — a fresh
// install has no personas configured yet.
func LoadLibrary(path string) (*Library, error) {
	l := &Library{path: path, byslug: map[string]Persona{}}
	if err := l.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create persona library watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		logging.BootWarn("persona library %s not watchable yet: %v", path, err)
	}
	l.watcher = w
	go l.watchLoop()

	return l, nil
}

func (l *Library) watchLoop() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := l.reload(); err != nil {
				logging.BootError("persona library reload failed: %v", err)
				continue
			}
			logging.Boot("persona library reloaded from %s", l.path)
			l.mu.RLock()
			callbacks := append([]func(){}, l.onReload...)
			l.mu.RUnlock()
			for _, cb := range callbacks {
				cb()
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logging.BootError("persona library watcher error: %v", err)
		}
	}
}

// OnReload registers a callback invoked after every successful reload.
func (l *Library) OnReload(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onReload = append(l.onReload, fn)
}

// Close stops the filesystem watcher.
func (l *Library) Close() error {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Close()
}

func (l *Library) reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.mu.Lock()
			l.byslug = map[string]Persona{}
			l.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read persona library %s: %w", l.path, err)
	}

	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse persona library %s: %w", l.path, err)
	}

	byslug := make(map[string]Persona, len(file.Personas))
	for _, p := range file.Personas {
		p.applyDefaults()
		if err := p.validate(); err != nil {
			return fmt.Errorf("persona library %s: %w", l.path, err)
		}
		byslug[Slug(p.Name)] = p
	}

	l.mu.Lock()
	l.byslug = byslug
	l.mu.Unlock()
	return nil
}

// Get returns the persona matching name's slug.
func (l *Library) Get(name string) (Persona, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.byslug[Slug(name)]
	return p, ok
}

// List returns every loaded persona, order unspecified.
func (l *Library) List() []Persona {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Persona, 0, len(l.byslug))
	for _, p := range l.byslug {
		out = append(out, p)
	}
	return out
}
