// Package testutil provides testing utilities for mamba tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// SetupPrefix creates a temporary environment prefix with the conda-meta
// directory every real prefix carries. Returns the path to the prefix.
// The prefix is automatically cleaned up when the test completes.
func SetupPrefix(t *testing.T) string {
	t.Helper()

	prefix := t.TempDir()
	metaDir := filepath.Join(prefix, "conda-meta")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		t.Fatalf("failed to create conda-meta: %v", err)
	}
	history := filepath.Join(metaDir, "history")
	if err := os.WriteFile(history, nil, 0644); err != nil {
		t.Fatalf("failed to create history file: %v", err)
	}

	return prefix
}

// SetupPrefixWithContent creates a prefix with the specified files.
// The files map contains paths relative to the prefix and their contents.
func SetupPrefixWithContent(t *testing.T, files map[string]string) string {
	t.Helper()

	prefix := SetupPrefix(t)
	for path, content := range files {
		WriteFile(t, filepath.Join(prefix, path), content)
	}
	return prefix
}

// SetupEnv creates a named environment under root's envs directory and
// returns its prefix path.
func SetupEnv(t *testing.T, root, name string) string {
	t.Helper()

	prefix := filepath.Join(root, "envs", name)
	metaDir := filepath.Join(prefix, "conda-meta")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		t.Fatalf("failed to create env %s: %v", name, err)
	}
	return prefix
}

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// TrashIndexPath returns the path of the trash index inside prefix.
func TrashIndexPath(prefix string) string {
	return filepath.Join(prefix, "conda-meta", "mamba_trash.txt")
}

// WriteTrashIndex populates the prefix's trash index with the given
// entries, one per line.
func WriteTrashIndex(t *testing.T, prefix string, entries ...string) {
	t.Helper()

	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(entry)
		b.WriteString("\n")
	}
	WriteFile(t, TrashIndexPath(prefix), b.String())
}

// ReadTrashIndex returns the non-blank lines of the prefix's trash index,
// or nil when the index does not exist.
func ReadTrashIndex(t *testing.T, prefix string) []string {
	t.Helper()

	data, err := os.ReadFile(TrashIndexPath(prefix))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("failed to read trash index: %v", err)
	}

	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

// SkipIfNoSh skips the test if no POSIX shell is available.
func SkipIfNoSh(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH, skipping test")
	}
}

// SkipOnWindows skips tests that depend on POSIX process or filesystem
// semantics.
func SkipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping on windows")
	}
}
