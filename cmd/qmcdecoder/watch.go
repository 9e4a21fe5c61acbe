package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	qmcdecoder "github.com/devgianlu/go-qmcdecoder"
	"github.com/fsnotify/fsnotify"
)

// Watch decodes the containers already present in the given directories, then keeps decoding
// new or rewritten ones once they have not changed for the settle interval, replacing their
// previous output. It returns when the context is done.
func (app *App) Watch(ctx context.Context, dirs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed creating watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	for _, dir := range dirs {
		if stat, err := os.Stat(dir); err != nil {
			return fmt.Errorf("failed accessing watched directory: %w", err)
		} else if !stat.IsDir() {
			return fmt.Errorf("cannot watch %s: not a directory", dir)
		}

		if err := app.watchTree(watcher, dir); err != nil {
			return err
		}
	}

	existing, err := app.collectInputs(dirs)
	if err != nil {
		return err
	}

	p := newPool(app.cfg.Workers, app.decodeFile)
	p.Start(ctx)

	reported := make(chan struct{})
	go func() {
		defer close(reported)

		for res := range p.Results() {
			app.report(res)
		}
	}()

	defer func() {
		p.Close()
		<-reported
	}()

	for _, input := range existing {
		if !p.Submit(ctx, job{input: input, overwrite: app.cfg.Overwrite}) {
			return nil
		}
	}

	ticker := time.NewTicker(max(app.cfg.WatchSettle/4, 10*time.Millisecond))
	defer ticker.Stop()

	app.log.Infof("watching %d directories for new containers", len(dirs))

	// last event time per container
	pending := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			app.handleEvent(watcher, pending, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			app.log.WithError(err).Warn("directory watcher error")
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < app.cfg.WatchSettle {
					continue
				}

				// the container changed after startup, its old output is stale
				delete(pending, path)
				if !p.Submit(ctx, job{input: path, overwrite: true}) {
					return nil
				}
			}
		}
	}
}

func (app *App) handleEvent(watcher *fsnotify.Watcher, pending map[string]time.Time, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		delete(pending, ev.Name)
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if stat, err := os.Stat(ev.Name); err == nil && stat.IsDir() {
			if ev.Has(fsnotify.Create) {
				app.watchNewTree(watcher, pending, ev.Name)
			}

			return
		}

		if qmcdecoder.IsContainerPath(ev.Name) {
			app.log.Tracef("container %s changed", ev.Name)
			pending[ev.Name] = time.Now()
		}
	}
}

// watchNewTree starts watching a directory that appeared after startup. Anything written into
// it before the watch was in place has no event of its own, so it is queued here.
func (app *App) watchNewTree(watcher *fsnotify.Watcher, pending map[string]time.Time, dir string) {
	if err := app.watchTree(watcher, dir); err != nil {
		app.log.WithError(err).Warnf("failed watching new directory %s", dir)
		return
	}

	inputs, err := app.collectInputs([]string{dir})
	if err != nil {
		app.log.WithError(err).Warnf("failed listing new directory %s", dir)
		return
	}

	now := time.Now()
	for _, input := range inputs {
		pending[input] = now
	}
}

// watchTree adds dir and all its subdirectories to the watcher.
func (app *App) watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		} else if !d.IsDir() {
			return nil
		}

		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed watching %s: %w", p, err)
		}

		app.log.Debugf("watching %s", p)
		return nil
	})
}
