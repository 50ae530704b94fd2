// Package watch adds a directory-watch mode on top of internal/transform.
// It has no counterpart in original_source — SPEC_FULL.md §4.7 supplements
// it as the ambient affordance source-to-source tools commonly carry,
// grounded on the teacher's own fsnotify-backed VFS watcher
// (internal/runtime/vfs/watch_fsnotify.go).
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Driver is the subset of a transform driver's API that Run needs (satisfied
// by *transform.Driver), kept narrow so tests can substitute a stub.
type Driver interface {
	Transform(path string, visited []string) (string, error)
}

// Run watches every directory under dir for writes or atomic-save
// replacements (write-then-rename, as vim and many editors do) of *.lua
// files and re-invokes driver.Transform on each one, reporting the outcome
// through onRebuild. It blocks until ctx is cancelled. This is strictly
// additive: it never changes single-shot transformation semantics, only
// triggers them repeatedly.
func Run(ctx context.Context, dir string, driver Driver, onRebuild func(path string, err error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addTree(w, dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			changed := ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create)
			if !changed || !strings.HasSuffix(ev.Name, ".lua") {
				continue
			}

			_, err := driver.Transform(ev.Name, nil)
			if onRebuild != nil {
				onRebuild(ev.Name, err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			if onRebuild != nil {
				onRebuild("", err)
			}
		}
	}
}

// addTree registers w on dir and every subdirectory beneath it — fsnotify
// does not recurse on its own.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return w.Add(path)
		}

		return nil
	})
}
