// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package scripting

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

func readDirSorted(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	// os.ReadDir returns entries sorted by name.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

type fileStamp struct {
	mtime time.Time
	size  int64
}

// stopTimeout bounds how long a reload waits for the old script
// instance to leave its event loop.
const stopTimeout = 5 * time.Second

// Reload replaces a running script with a fresh instance loaded from
// path. A script of the same name is asked to exit first.
func (l *Loader) Reload(path string) {
	name := NameFromPath(path)
	if old := l.handleByName(name); old != nil {
		old.Stop()
		select {
		case <-old.Done():
		case <-time.After(stopTimeout):
			l.log.Warnf("script %s did not exit, abandoning it", name)
		}
		l.removeHandle(old)
	}
	if _, err := l.LoadScript(path); err != nil {
		l.log.Errorf("reloading %s: %v", path, err)
	}
}

// Watch reloads scripts in dir as they change on disk, until ctx is
// cancelled. Duplicate notifications for one save are filtered by
// comparing file modification time and size.
func (l *Loader) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	l.log.Infof("watching %s for script changes", dir)

	seen := make(map[string]fileStamp)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Rename) {
				continue
			}
			st, err := os.Stat(ev.Name)
			if err != nil || st.IsDir() {
				continue
			}
			stamp := fileStamp{mtime: st.ModTime(), size: st.Size()}
			if seen[ev.Name] == stamp {
				continue
			}
			seen[ev.Name] = stamp
			if _, err := l.matchBackend(ev.Name); err != nil {
				continue
			}
			l.Reload(ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.log.Warnf("watch: %v", err)
		}
	}
}
