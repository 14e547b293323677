// Package watch reports changes below a directory tree, coalescing bursts
// of events (editors often write a file several times on save).
package watch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"defview/internal/logger"
)

// DefaultDelay is the quiet period after the last event before OnChange runs.
const DefaultDelay = 150 * time.Millisecond

type Options struct {
	Logger *zap.Logger
	Delay  time.Duration
	// OnChange is called from the watcher goroutine with the last path that
	// changed in a burst.
	OnChange func(path string)
}

type Watcher struct {
	fw   *fsnotify.Watcher
	log  *zap.Logger
	opts Options

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New watches root and every directory below it. Directories created
// later are watched as they appear.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		fw:   fw,
		log:  logger.Or(opts.Logger),
		opts: opts,
		done: make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	w.wg.Add(1)
	go w.loop()
	w.log.Debug("watching", zap.String("root", root), zap.Duration("delay", opts.Delay))
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("watch: %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	timer := time.NewTimer(w.opts.Delay)
	timer.Stop()
	var last string
	for {
		select {
		case <-w.done:
			timer.Stop()
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if err := w.addTree(event.Name); err != nil {
					// not a directory, or already gone again
					w.log.Debug("not watched", zap.String("path", event.Name), zap.Error(err))
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			last = event.Name
			timer.Reset(w.opts.Delay)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			w.log.Info("change detected", zap.String("path", last))
			if w.opts.OnChange != nil {
				w.opts.OnChange(last)
			}
		}
	}
}

// Close stops the watcher. No OnChange call starts after Close returns.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.fw.Close()
	})
	return err
}
