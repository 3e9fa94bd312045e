package trash

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/pbrit/mamba/internal/logging"
)

const (
	// janitorInterval floors the spacing between reclamation passes.
	janitorInterval = 2 * time.Second
	// janitorDebounce gathers a burst of trash events into one pass.
	janitorDebounce = 200 * time.Millisecond
)

// Janitor watches a prefix's conda-meta directory and reclaims trash as
// soon as new entries land in the index.
//
// Quarantined files can appear anywhere under the prefix, but every
// quarantine also appends to the index under conda-meta, so watching
// that one directory is enough. Bursts of events are debounced and
// passes are rate limited, so many quarantines trigger one reclamation,
// not one each.
type Janitor struct {
	prefix  string
	opts    CleanOptions
	log     *logging.Logger
	watcher *fsnotify.Watcher
	limiter *rate.Limiter

	// debounce gathers a burst of trash events into one pass.
	debounce time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewJanitor returns a Janitor for the given prefix. The conda-meta
// directory must already exist. A nil log discards diagnostics.
func NewJanitor(prefix string, opts CleanOptions, log *logging.Logger) (*Janitor, error) {
	if log == nil {
		log = logging.NopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	metaDir := filepath.Dir(indexPath(prefix))
	if err := watcher.Add(metaDir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", metaDir, err)
	}

	return &Janitor{
		prefix:   prefix,
		opts:     opts,
		log:      log.WithComponent("janitor").WithPrefix(prefix),
		watcher:  watcher,
		limiter:  rate.NewLimiter(rate.Every(janitorInterval), 1),
		debounce: janitorDebounce,
	}, nil
}

// Run watches for trash activity until ctx ends or the janitor is
// closed. One pass always runs on entry, so trash left over from
// earlier runs is reclaimed without waiting for an event.
func (j *Janitor) Run(ctx context.Context) error {
	j.clean(ctx)

	debounce := time.NewTimer(0)
	<-debounce.C

	dirty := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-j.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !trashEvent(event.Name) {
				continue
			}
			dirty = true
			debounce.Reset(j.debounce)

		case <-debounce.C:
			if !dirty {
				continue
			}
			dirty = false
			j.clean(ctx)

		case err, ok := <-j.watcher.Errors:
			if !ok {
				return nil
			}
			j.log.Warn("watch error", "error", err.Error())
		}
	}
}

// clean runs one rate-limited reclamation pass.
func (j *Janitor) clean(ctx context.Context) {
	if err := j.limiter.Wait(ctx); err != nil {
		return
	}
	Clean(j.prefix, j.opts, j.log)
}

// Close stops the watcher, which in turn makes Run return. Safe to call
// more than once.
func (j *Janitor) Close() error {
	j.closeOnce.Do(func() {
		j.closeErr = j.watcher.Close()
	})
	return j.closeErr
}

// trashEvent reports whether a filesystem event path is trash related:
// the index itself or anything carrying the trash extension.
func trashEvent(name string) bool {
	base := filepath.Base(name)
	return base == indexFileName || strings.HasSuffix(base, TrashExt)
}
