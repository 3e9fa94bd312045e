package lockfile

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pbrit/mamba/internal/errors"
	"github.com/pbrit/mamba/internal/logging"
)

// registry tracks every lock this process holds, keyed by the absolute
// target path. It exists because OS record locks do not conflict within a
// process: without deduplication, two callers locking the same prefix
// would both "succeed" and the first release would drop the other's lock.
type registry struct {
	mu      sync.Mutex
	entries map[string]*entry // absolute target -> shared owner
	byFd    map[int]string    // marker descriptor -> absolute target
}

// entry pairs an owner with the number of handles sharing it.
type entry struct {
	owner *owner
	refs  int
}

// locks is the process-wide registry. All acquisitions in the process go
// through it, whatever goroutine they run on.
var locks = &registry{
	entries: make(map[string]*entry),
	byFd:    make(map[int]string),
}

// acquire returns an owner for target, sharing a live one when this
// process already holds the lock. New owners are constructed under the
// registry mutex, so concurrent acquisitions of one target can never
// race to create two.
func (r *registry) acquire(ctx context.Context, target string, timeout time.Duration, log *logging.Logger) (*owner, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, errors.NewLockError("could not resolve lock target", err).WithTarget(target)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.findLocked(abs); e != nil {
		// Already locked by this process: hand out shared ownership.
		log.Debug("path already locked by the same process", "path", abs)
		e.refs++
		return e.owner, nil
	}

	o, err := newOwner(ctx, abs, timeout, log)
	if err != nil {
		return nil, err
	}

	r.entries[abs] = &entry{owner: o, refs: 1}
	r.byFd[o.fd] = abs
	return o, nil
}

// findLocked returns the live entry whose target or marker matches path.
// Matching markers as well lets callers lock a marker file they already
// hold through its target, instead of deadlocking against themselves.
func (r *registry) findLocked(path string) *entry {
	if e, ok := r.entries[path]; ok {
		return e
	}
	for _, e := range r.entries {
		if e.owner.marker == path {
			return e
		}
	}
	return nil
}

// release drops one reference to the target's lock. The last reference
// tears down the OS lock and prunes both indexes.
func (r *registry) release(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[target]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}

	delete(r.entries, target)
	delete(r.byFd, e.owner.fd)
	e.owner.release()
}

// isLocked reports whether this process holds a lock whose target or
// marker matches path. path must already be absolute.
func (r *registry) isLocked(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(path) != nil
}

// isLockedFd reports whether fd belongs to a marker this process holds.
func (r *registry) isLockedFd(fd int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byFd[fd]
	return ok
}

// held returns the number of distinct targets currently locked.
func (r *registry) held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
