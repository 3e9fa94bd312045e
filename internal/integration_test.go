// Package internal contains integration tests that verify the lockfile and
// trash packages work together the way the CLI drives them: a prefix stays
// cleanable while its lock is held, and cleaning never disturbs lock markers.
package internal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbrit/mamba/internal/fsutil"
	"github.com/pbrit/mamba/internal/lockfile"
	"github.com/pbrit/mamba/internal/logging"
	"github.com/pbrit/mamba/internal/testutil"
	"github.com/pbrit/mamba/internal/trash"
)

func TestLockedPrefixCleanup(t *testing.T) {
	prefix := testutil.SetupPrefix(t)
	junk := filepath.Join(prefix, "pkgs", "libold.so.mamba_trash")
	testutil.WriteFile(t, junk, "stale")
	testutil.WriteTrashIndex(t, prefix, filepath.Join("pkgs", "libold.so.mamba_trash"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	lock, err := lockfile.AcquireTimeout(ctx, prefix, 2*time.Second)
	if err != nil {
		t.Fatalf("AcquireTimeout: %v", err)
	}
	defer lock.Close()

	marker := lock.Marker()
	if !lockfile.IsLocked(marker) {
		t.Fatal("prefix not reported locked while the handle is held")
	}

	// Reclamation proceeds under a held lock: only installs must serialize.
	stats := trash.Clean(prefix, trash.CleanOptions{}, logging.NopLogger())
	if stats.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", stats.Deleted)
	}
	if fsutil.Lexists(junk) {
		t.Error("trash file survived the clean")
	}
	if !fsutil.Lexists(marker) {
		t.Error("clean removed the lock marker")
	}

	if err := lock.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if lockfile.IsLocked(marker) {
		t.Error("prefix still reported locked after release")
	}
}

func TestDeepCleanSparesLockMarkers(t *testing.T) {
	prefix := testutil.SetupPrefix(t)
	stray := filepath.Join(prefix, "lib", "stray.mamba_trash")
	testutil.WriteFile(t, stray, "unindexed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	lock, err := lockfile.AcquireTimeout(ctx, prefix, 2*time.Second)
	if err != nil {
		t.Fatalf("AcquireTimeout: %v", err)
	}
	defer lock.Close()

	stats := trash.Clean(prefix, trash.CleanOptions{Deep: true}, logging.NopLogger())
	if stats.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", stats.Deleted)
	}
	if fsutil.Lexists(stray) {
		t.Error("deep clean missed the stray trash file")
	}
	if !fsutil.Lexists(lock.Marker()) {
		t.Error("deep clean removed the lock marker")
	}
}

func TestDisabledLockfilesStillClean(t *testing.T) {
	lockfile.SetEnabled(false)
	defer lockfile.SetEnabled(true)

	prefix := testutil.SetupPrefix(t)
	junk := filepath.Join(prefix, "junk.mamba_trash")
	testutil.WriteFile(t, junk, "stale")
	testutil.WriteTrashIndex(t, prefix, "junk.mamba_trash")

	lock, err := lockfile.Acquire(context.Background(), prefix)
	if err != nil {
		t.Fatalf("Acquire with lockfiles disabled: %v", err)
	}
	defer lock.Close()
	if lock.Marker() != "" {
		t.Errorf("no-op handle has marker %q, want none", lock.Marker())
	}

	stats := trash.Clean(prefix, trash.CleanOptions{}, logging.NopLogger())
	if stats.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", stats.Deleted)
	}
}
