package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbrit/mamba/internal/fsutil"
	"github.com/pbrit/mamba/internal/lockfile"
	"github.com/pbrit/mamba/internal/testutil"
	"github.com/spf13/cobra"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// captureOutput captures stdout during function execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// resetCommandState isolates a test from package-level command state and
// from the developer's real home directory and environment.
func resetCommandState(t *testing.T) {
	t.Helper()

	childExitCode = 0
	cleanPrefixes = nil
	cleanDeep = false
	cleanDryRun = false
	cleanWatch = false
	runPrefix = ""
	statusPrefix = ""

	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("CONDA_PREFIX", "")
	t.Setenv("MAMBA_LOG_LEVEL", "error")
}

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "mamba" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "mamba")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"clean", "run", "status"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestCleanCommand(t *testing.T) {
	resetCommandState(t)

	prefix := testutil.SetupPrefix(t)
	junk := filepath.Join(prefix, "junk.mamba_trash")
	testutil.WriteFile(t, junk, "stale")
	testutil.WriteTrashIndex(t, prefix, "junk.mamba_trash")

	var cmdErr error
	output := captureOutput(func() {
		_, cmdErr = executeCommand(rootCmd, "clean", "--prefix", prefix)
	})
	if cmdErr != nil {
		t.Fatalf("clean failed: %v", cmdErr)
	}

	if fsutil.Lexists(junk) {
		t.Error("trash file was not removed")
	}
	if got := testutil.ReadTrashIndex(t, prefix); got != nil {
		t.Errorf("trash index still lists %v", got)
	}
	if !strings.Contains(output, "Cleaned 1 trash files") {
		t.Errorf("output = %q, want it to report one cleaned file", output)
	}
}

func TestCleanCommand_DryRun(t *testing.T) {
	resetCommandState(t)

	prefix := testutil.SetupPrefix(t)
	junk := filepath.Join(prefix, "junk.mamba_trash")
	testutil.WriteFile(t, junk, "stale")
	testutil.WriteTrashIndex(t, prefix, "junk.mamba_trash")

	var cmdErr error
	output := captureOutput(func() {
		_, cmdErr = executeCommand(rootCmd, "clean", "--prefix", prefix, "--dry-run")
	})
	if cmdErr != nil {
		t.Fatalf("clean --dry-run failed: %v", cmdErr)
	}

	if !fsutil.Lexists(junk) {
		t.Error("dry run removed the trash file")
	}
	if got := testutil.ReadTrashIndex(t, prefix); len(got) != 1 {
		t.Errorf("dry run changed the index: %v", got)
	}
	if !strings.Contains(output, "Would clean 1 trash files") {
		t.Errorf("output = %q, want a dry-run report", output)
	}
}

func TestCleanCommand_MultiplePrefixes(t *testing.T) {
	resetCommandState(t)

	first := testutil.SetupPrefix(t)
	second := testutil.SetupPrefix(t)
	for _, prefix := range []string{first, second} {
		testutil.WriteFile(t, filepath.Join(prefix, "old.mamba_trash"), "x")
		testutil.WriteTrashIndex(t, prefix, "old.mamba_trash")
	}

	var cmdErr error
	output := captureOutput(func() {
		_, cmdErr = executeCommand(rootCmd, "clean", "--prefix", first, "--prefix", second)
	})
	if cmdErr != nil {
		t.Fatalf("clean failed: %v", cmdErr)
	}

	for _, prefix := range []string{first, second} {
		if fsutil.Lexists(filepath.Join(prefix, "old.mamba_trash")) {
			t.Errorf("trash file in %s was not removed", prefix)
		}
	}
	if !strings.Contains(output, "Cleaned 2 trash files across 2 prefixes") {
		t.Errorf("output = %q, want a two-prefix summary", output)
	}
}

func TestCleanCommand_DefaultsToActivePrefix(t *testing.T) {
	resetCommandState(t)

	prefix := testutil.SetupPrefix(t)
	t.Setenv("CONDA_PREFIX", prefix)
	junk := filepath.Join(prefix, "junk.mamba_trash")
	testutil.WriteFile(t, junk, "stale")
	testutil.WriteTrashIndex(t, prefix, "junk.mamba_trash")

	var cmdErr error
	captureOutput(func() {
		_, cmdErr = executeCommand(rootCmd, "clean")
	})
	if cmdErr != nil {
		t.Fatalf("clean failed: %v", cmdErr)
	}
	if fsutil.Lexists(junk) {
		t.Error("trash file in $CONDA_PREFIX was not removed")
	}
}

func TestCleanCommand_Deep(t *testing.T) {
	resetCommandState(t)

	prefix := testutil.SetupPrefix(t)
	stray := filepath.Join(prefix, "lib", "stray.mamba_trash")
	testutil.WriteFile(t, stray, "unindexed")

	var cmdErr error
	captureOutput(func() {
		_, cmdErr = executeCommand(rootCmd, "clean", "--prefix", prefix, "--deep")
	})
	if cmdErr != nil {
		t.Fatalf("clean --deep failed: %v", cmdErr)
	}
	if fsutil.Lexists(stray) {
		t.Error("deep clean missed an unindexed trash file")
	}
}

func TestStatusCommand(t *testing.T) {
	resetCommandState(t)

	prefix := testutil.SetupPrefix(t)
	testutil.WriteTrashIndex(t, prefix, "pkgs/libold.so.mamba_trash")

	var cmdErr error
	output := captureOutput(func() {
		_, cmdErr = executeCommand(rootCmd, "status", "--prefix", prefix)
	})
	if cmdErr != nil {
		t.Fatalf("status failed: %v", cmdErr)
	}

	if !strings.Contains(output, "Prefix: "+prefix) {
		t.Errorf("output = %q, want the prefix line", output)
	}
	if !strings.Contains(output, "Lock: none") {
		t.Errorf("output = %q, want an unlocked state", output)
	}
	if !strings.Contains(output, "Trash entries: 1") {
		t.Errorf("output = %q, want one trash entry", output)
	}
	if !strings.Contains(output, "pkgs/libold.so.mamba_trash") {
		t.Errorf("output = %q, want the entry listed", output)
	}
}

func TestStatusCommand_MissingPrefix(t *testing.T) {
	resetCommandState(t)

	_, err := executeCommand(rootCmd, "status", "--prefix", filepath.Join(t.TempDir(), "gone"))
	if err == nil {
		t.Error("status succeeded for a missing prefix")
	}
}

func TestRunCommand_ExitCodePropagated(t *testing.T) {
	resetCommandState(t)
	testutil.SkipOnWindows(t)
	testutil.SkipIfNoSh(t)

	prefix := testutil.SetupPrefix(t)

	_, err := executeCommand(rootCmd, "run", "--prefix", prefix, "--", "sh", "-c", "exit 5")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if childExitCode != 5 {
		t.Errorf("childExitCode = %d, want 5", childExitCode)
	}
}

func TestRunCommand_PassesPrefixEnv(t *testing.T) {
	resetCommandState(t)
	testutil.SkipOnWindows(t)
	testutil.SkipIfNoSh(t)

	prefix := testutil.SetupPrefix(t)

	output, err := executeCommand(rootCmd, "run", "--prefix", prefix, "--", "sh", "-c", `printf '%s' "$CONDA_PREFIX"`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if childExitCode != 0 {
		t.Fatalf("childExitCode = %d, want 0", childExitCode)
	}
	if output != prefix {
		t.Errorf("child saw CONDA_PREFIX=%q, want %q", output, prefix)
	}
}

func TestRunCommand_ReleasesLock(t *testing.T) {
	resetCommandState(t)
	testutil.SkipOnWindows(t)
	testutil.SkipIfNoSh(t)

	prefix := testutil.SetupPrefix(t)

	_, err := executeCommand(rootCmd, "run", "--prefix", prefix, "--", "sh", "-c", "exit 0")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	marker, err := lockfile.MarkerPath(prefix)
	if err != nil {
		t.Fatalf("MarkerPath: %v", err)
	}
	// Markers persist after release; only the advisory lock drops.
	if !fsutil.Lexists(marker) {
		t.Error("lock marker was not created")
	}
	if lockfile.IsLocked(marker) {
		t.Error("lock still held after run returned")
	}
}

func TestRunCommand_RequiresCommand(t *testing.T) {
	resetCommandState(t)

	_, err := executeCommand(rootCmd, "run", "--prefix", t.TempDir())
	if err == nil {
		t.Error("run succeeded without a command")
	}
}
