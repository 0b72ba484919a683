package settings

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store whenever its settings file is written or replaced.
type Watcher struct {
	fs        *fsnotify.Watcher
	store     Store
	path      string
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Watch starts watching the settings file at path and reloading it into store. The parent
// directory is watched so editors that save by rename are picked up too. A reload that fails
// is logged and the previous settings stay in effect.
//
// Parameters:
//   - store: the store to reload into
//   - path: the .json or .toml settings file
//
// Returns:
//   - *Watcher: the running watcher; call Close to stop it
//   - error: an error if the watch cannot be established
func Watch(store Store, path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("settings: watch %q: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("settings: watch %q: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("settings: watch %q: %w", path, err)
	}

	w := &Watcher{
		fs:    fw,
		store: store,
		path:  abs,
		done:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			if err := w.store.LoadFile(w.path); err != nil {
				common.Logger().Warn("[Settings] reload failed", "path", w.path, "err", err)
				continue
			}
			common.Logger().Info("[Settings] reloaded", "path", w.path, "revision", w.store.Revision())
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("[Settings] watcher error", "err", err)
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit. Safe to call more than once.
//
// Returns:
//   - error: an error if the underlying watcher fails to close
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}
