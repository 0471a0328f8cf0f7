// Package watcher mirrors changes of the whitelist folder into the whitelist:
// images added to or removed from a person folder and person folders removed
// from the root.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-whitelist/internal/recognizer"
)

// DefaultDebounce is how long a path must stay quiet before it is handled.
const DefaultDebounce = 2 * time.Second

// Whitelist is the part of the recognizer the watcher drives.
type Whitelist interface {
	AddImageToWhitelist(ctx context.Context, imagePath, personName string) error
	RemoveImageFromWhitelist(ctx context.Context, imagePath, personName string) error
	AddPersonToWhitelist(ctx context.Context, folder, personName string) (*recognizer.BuildReport, error)
	RemovePersonFromWhitelist(ctx context.Context, personName string) error
}

type actionKind int

const (
	addImage actionKind = iota + 1
	removeImage
	addPerson
	removePerson
)

func (k actionKind) String() string {
	switch k {
	case addImage:
		return "add-image"
	case removeImage:
		return "remove-image"
	case addPerson:
		return "add-person"
	case removePerson:
		return "remove-person"
	default:
		return "unknown"
	}
}

type action struct {
	kind actionKind
	path string
}

// Watcher watches a whitelist root folder and its person subfolders.
type Watcher struct {
	root       string
	wl         Whitelist
	log        *zap.Logger
	debounce   time.Duration
	extensions []string

	mu      sync.Mutex
	pending map[string]*time.Timer
	actions chan action
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithDebounce sets the quiet period per path.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithImageExtensions limits image events to these lower-case extensions.
func WithImageExtensions(exts []string) Option {
	return func(w *Watcher) {
		if len(exts) > 0 {
			w.extensions = exts
		}
	}
}

// New creates a Watcher for root.
func New(root string, wl Whitelist, opts ...Option) *Watcher {
	w := &Watcher{
		root:       filepath.Clean(root),
		wl:         wl,
		log:        zap.NewNop(),
		debounce:   DefaultDebounce,
		extensions: recognizer.DefaultImageExtensions,
		pending:    make(map[string]*time.Timer),
		actions:    make(chan action, 64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. Workflows run one at a time in event order
// after each path has been quiet for the debounce period.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			w.watchPerson(fw, filepath.Join(w.root, e.Name()))
		}
	}
	w.log.Info("watching whitelist folder", zap.String("folder", w.root))

	return w.loop(ctx, fw.Events, fw.Errors, func(dir string) { w.watchPerson(fw, dir) })
}

// loop classifies events and feeds the worker until ctx is done or the
// event streams close.
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, watchDir func(string)) error {
	w.done = make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()
	defer func() {
		w.stopTimers()
		close(w.done)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			a, ok := w.classify(ev)
			if !ok {
				continue
			}
			if a.kind == addPerson {
				watchDir(a.path)
			}
			w.schedule(a)
		}
	}
}

func (w *Watcher) watchPerson(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil {
		w.log.Warn("watch person folder", zap.String("folder", dir), zap.Error(err))
	}
}

// classify maps a file system event to a whitelist action.
func (w *Watcher) classify(ev fsnotify.Event) (action, bool) {
	path := filepath.Clean(ev.Name)
	if strings.HasPrefix(filepath.Base(path), ".") {
		return action{}, false
	}
	parent := filepath.Dir(path)
	removed := ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)

	switch {
	case parent == w.root:
		if removed {
			return action{kind: removePerson, path: path}, true
		}
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return action{kind: addPerson, path: path}, true
			}
		}
	case filepath.Dir(parent) == w.root:
		if !slices.Contains(w.extensions, strings.ToLower(filepath.Ext(path))) {
			return action{}, false
		}
		if removed {
			return action{kind: removeImage, path: path}, true
		}
		if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
			return action{kind: addImage, path: path}, true
		}
	}
	return action{}, false
}

// schedule (re)starts the debounce timer for a path; the latest action wins.
func (w *Watcher) schedule(a action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[a.path]; ok {
		t.Stop()
	}
	w.pending[a.path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, a.path)
		w.mu.Unlock()
		select {
		case w.actions <- a:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case a := <-w.actions:
			w.apply(ctx, a)
		}
	}
}

func (w *Watcher) apply(ctx context.Context, a action) {
	log := w.log.With(zap.Stringer("action", a.kind), zap.String("path", a.path))
	var err error
	switch a.kind {
	case addImage:
		err = w.wl.AddImageToWhitelist(ctx, a.path, "")
	case removeImage:
		err = w.wl.RemoveImageFromWhitelist(ctx, a.path, "")
	case addPerson:
		_, err = w.wl.AddPersonToWhitelist(ctx, a.path, "")
	case removePerson:
		err = w.wl.RemovePersonFromWhitelist(ctx, filepath.Base(a.path))
	}

	switch {
	case err == nil:
		log.Info("whitelist updated")
	case errors.Is(err, recognizer.ErrNotFound):
		log.Debug("nothing to remove", zap.Error(err))
	default:
		log.Warn("whitelist update failed", zap.Stringer("kind", recognizer.KindOf(err)), zap.Error(err))
	}
}
