// Package lockfile provides cross-process advisory locking for prefix
// directories and files, interoperable with the lockfiles libmamba writes.
//
// When multiple mamba processes operate on the same prefix or package cache,
// they may corrupt it by installing or removing files simultaneously. The
// lockfile package prevents this by taking an OS-level lock on a marker file
// next to (or inside) the protected path. Processes acquire the lock before
// mutating the target and release it when done.
//
// # Marker Files
//
// Locking a directory D creates the marker D/<basename>.lock inside it;
// locking a file F creates the sibling F.lock. The marker itself stays
// zero-length: the mutual exclusion payload is the OS lock state on one byte
// of the marker, at the same offset libmamba locks, so mamba, micromamba and
// this tool exclude each other. Markers that already existed on disk are
// left in place on release; markers created here are removed by the last
// holder.
//
// # Same-Process Sharing
//
// OS record locks do not conflict within a single process, so a process-wide
// registry deduplicates acquisitions: a second Acquire of the same target
// returns a new handle sharing the existing lock, and the OS lock drops only
// when the last handle is closed. The registry also answers same-process
// lock queries, which POSIX cannot answer through the filesystem (closing
// any descriptor of a file drops the process's record locks on it).
//
// # Basic Usage
//
//	lock, err := lockfile.Acquire(ctx, prefix)
//	if err != nil {
//		return err
//	}
//	defer lock.Close()
//
//	// Wait at most five seconds for other processes
//	lock, err = lockfile.AcquireTimeout(ctx, prefix, 5*time.Second)
//
//	// Point-in-time diagnostic
//	marker, _ := lockfile.MarkerPath(prefix)
//	held := lockfile.IsLocked(marker)
//
// # Thread Safety
//
// All package-level functions and LockFile methods are safe for concurrent
// use. Acquisitions are serialized through the registry's mutex.
package lockfile
