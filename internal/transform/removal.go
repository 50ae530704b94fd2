package transform

import (
	"os"
	"sync"
)

// removalList tracks cache files to delete at normal process exit, guarded
// by a mutex per spec.md §5's "process-wide, must serialize" note on the
// original's global removal list.
type removalList struct {
	mu    sync.Mutex
	paths []string
}

func newRemovalList() *removalList {
	return &removalList{}
}

func (r *removalList) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paths = append(r.paths, path)
}

// drain deletes every registered path and empties the list.
func (r *removalList) drain() {
	r.mu.Lock()
	paths := r.paths
	r.paths = nil
	r.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}
