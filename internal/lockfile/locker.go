package lockfile

import "os"

// lockOffset is the byte each process locks in the marker file. The offset
// matches the byte libmamba locks, which keeps cross-tool exclusion intact.
const lockOffset = 21

// markerLocker is the platform lock primitive on an open marker file.
// Implementations lock a single byte rather than the whole file so the
// marker can still be created, probed and deleted while held.
type markerLocker interface {
	// TryLock attempts a non-blocking exclusive lock on the marker byte.
	// A false result with a nil error means another process holds it;
	// holder carries that process's PID when the platform reports one.
	TryLock(f *os.File) (locked bool, holder int, err error)

	// Unlock drops the byte lock. The descriptor stays open.
	Unlock(f *os.File) error

	// LockedExternally probes whether any process holds the marker byte
	// by opening a fresh descriptor. On POSIX, closing that descriptor
	// would drop this process's own record locks on the file, so callers
	// must consult the registry before probing.
	LockedExternally(path string) (locked bool, holder int, err error)
}

// newLocker is swapped in tests to simulate foreign lock holders, which
// same-process fcntl locks cannot express.
var newLocker = newPlatformLocker
