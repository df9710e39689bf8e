package local

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/gobeaver/docview"
)

// Watch implements docview.CanWatch with fsnotify. filter is a glob over
// store paths in which * stays within a directory and ** crosses them,
// e.g. "**.pdf" or "reports/*.xlsx". The whole tree is watched; directories
// created later are added as they appear.
func (a *Adapter) Watch(ctx context.Context, filter string) (docview.ChangeToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pattern, err := glob.Compile(strings.TrimPrefix(filter, "/"), '/')
	if err != nil {
		return nil, docview.WrapPathErr("watch", filter, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, docview.WrapPathErr("watch", filter, err)
	}

	err = filepath.WalkDir(a.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, docview.WrapPathErr("watch", filter, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	token := &watchToken{CallbackChangeToken: docview.NewCallbackChangeToken(), cancel: cancel}
	go a.watchLoop(ctx, watcher, pattern, token.CallbackChangeToken)

	return token, nil
}

// watchToken fires once a matching file changes. Stop ends the watch and
// releases the fsnotify watcher without firing.
type watchToken struct {
	*docview.CallbackChangeToken
	cancel context.CancelFunc
}

func (t *watchToken) Stop() {
	t.cancel()
}

func (a *Adapter) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pattern glob.Glob, token *docview.CallbackChangeToken) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				// new directories are not covered by the initial walk
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}

			rel, err := filepath.Rel(a.root, event.Name)
			if err != nil {
				continue
			}
			if pattern.Match(filepath.ToSlash(rel)) {
				token.SignalChange()
				return
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// overflow and similar errors are not fatal; keep watching
		}
	}
}
