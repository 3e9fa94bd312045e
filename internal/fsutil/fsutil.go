// Package fsutil provides small filesystem helpers shared by the lock and
// trash subsystems: weak existence checks, line-oriented file IO, and
// temporary artifacts that honor the keep-temp configuration.
package fsutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Process-wide retention switches, fed from configuration at startup.
// Kept artifacts survive Close so a failed run can be inspected.
var (
	settingsMu sync.RWMutex
	keepFiles  bool
	keepDirs   bool
)

// SetKeepArtifacts controls whether temporary files and directories
// created afterwards survive Close. Both default to false.
func SetKeepArtifacts(files, dirs bool) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	keepFiles = files
	keepDirs = dirs
}

// KeepArtifacts returns the current retention switches.
func KeepArtifacts() (files, dirs bool) {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return keepFiles, keepDirs
}

// Lexists reports whether path exists without following symlinks, so a
// dangling symlink still counts as existing.
func Lexists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Exists reports whether path exists, following symlinks.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadLines reads a text file into a slice of lines. Trailing carriage
// returns are stripped so files written on Windows parse the same way.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

// WriteLines replaces path with the given lines, one per line with a
// trailing newline. The content lands in a temporary file in the same
// directory first and is renamed into place, so readers never observe a
// partially written file.
func WriteLines(path string, lines []string) error {
	tmp, err := NewTempFile(filepath.Dir(path), "")
	if err != nil {
		return err
	}
	defer tmp.Close()

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(tmp.Path(), []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Path(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// AppendLine appends a single line to path, creating the file and its
// parent directory if needed.
func AppendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// TempFile is an empty file created in the system temp directory (or dir
// when given) that is removed on Close unless retention is switched on.
type TempFile struct {
	path string
	keep bool
}

// NewTempFile creates an empty temporary file. An empty dir uses the
// system default location, an empty pattern uses the mamba prefix. The
// retention switch is captured at creation time.
func NewTempFile(dir, pattern string) (*TempFile, error) {
	if pattern == "" {
		pattern = "mambaf*"
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	keep, _ := KeepArtifacts()
	return &TempFile{path: path, keep: keep}, nil
}

// Path returns the file's location on disk.
func (t *TempFile) Path() string {
	return t.path
}

// Close removes the file unless it was created under retention. Safe to
// call more than once.
func (t *TempFile) Close() error {
	if t == nil || t.path == "" || t.keep {
		return nil
	}
	path := t.path
	t.path = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}

// TempDir is a directory tree removed on Close unless retention is
// switched on.
type TempDir struct {
	path string
	keep bool
}

// NewTempDir creates a temporary directory. An empty dir uses the system
// default location, an empty pattern uses the mamba prefix. The retention
// switch is captured at creation time.
func NewTempDir(dir, pattern string) (*TempDir, error) {
	if pattern == "" {
		pattern = "mambad*"
	}
	path, err := os.MkdirTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	_, keep := KeepArtifacts()
	return &TempDir{path: path, keep: keep}, nil
}

// Path returns the directory's location on disk.
func (t *TempDir) Path() string {
	return t.path
}

// Close removes the directory and everything under it unless it was
// created under retention. Safe to call more than once.
func (t *TempDir) Close() error {
	if t == nil || t.path == "" || t.keep {
		return nil
	}
	path := t.path
	t.path = ""
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove temp directory: %w", err)
	}
	return nil
}
