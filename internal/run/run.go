// Package run executes child commands on behalf of mamba, typically while
// the calling process holds a prefix lock.
//
// The child is placed in its own process group so that interrupt and
// termination signals arriving at mamba can be forwarded to the whole
// child group while mamba itself stays alive to release its locks.
package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/pbrit/mamba/internal/errors"
	"github.com/pbrit/mamba/internal/logging"
)

// killDelay bounds how long a child may linger after its context ends
// before it is killed outright.
const killDelay = 10 * time.Second

// Options describe how a child command is wired up.
type Options struct {
	// Dir is the child's working directory; empty inherits the parent's.
	Dir string
	// Env entries are appended to the parent environment.
	Env []string
	// Stdin, Stdout and Stderr default to the parent's when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes program with args and returns the child's exit code.
//
// Interrupt and termination signals received while the child runs are
// forwarded to the child's process group rather than acted on here. A
// child that exits nonzero is not an error: the code is returned with a
// nil error. When ctx ends first the child group is asked to terminate,
// then killed after a grace period, and ctx's error is returned alongside
// whatever exit code the child produced.
func Run(ctx context.Context, program string, args []string, opts Options, log *logging.Logger) (int, error) {
	if log == nil {
		log = logging.NopLogger()
	}
	log = log.WithComponent("run")

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = killDelay

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start %s: %w", program, err)
	}
	log.Debug("child started", "program", program, "pid", cmd.Process.Pid)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, forwardedSignals()...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				log.Debug("forwarding signal to child", "signal", sig.String(), "pid", cmd.Process.Pid)
				if err := forward(cmd.Process, sig); err != nil {
					log.Warn("failed to forward signal", "signal", sig.String(), "error", err.Error())
				}
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)
	signal.Stop(sigCh)

	if err == nil {
		log.Debug("child exited", "program", program, "code", 0)
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		log.Debug("child exited", "program", program, "code", code)
		if ctx.Err() != nil {
			return code, ctx.Err()
		}
		return code, nil
	}
	return -1, fmt.Errorf("failed to run %s: %w", program, err)
}
