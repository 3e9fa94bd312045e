//go:build unix

package run

import (
	"os"
	"syscall"
)

// sysProcAttr places the child in its own process group so forwarded
// signals reach the whole group without also hitting the parent.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// forward delivers sig to the child's process group. A negative pid
// addresses the group rather than the single process.
func forward(p *os.Process, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return p.Signal(sig)
	}
	return syscall.Kill(-p.Pid, s)
}

// terminate asks the child's group to exit. The caller escalates to a
// hard kill if the group does not comply within the wait delay.
func terminate(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGTERM)
}

func forwardedSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
}
