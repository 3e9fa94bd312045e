//go:build windows

package run

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// sysProcAttr starts the child in a new process group, which is what
// allows console control events to target it without reaching the parent.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// forward delivers sig to the child's process group. Interrupt maps to a
// console break event; anything else falls back to killing the child.
func forward(p *os.Process, sig os.Signal) error {
	if sig == os.Interrupt {
		return windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(p.Pid))
	}
	return p.Kill()
}

// terminate asks the child's group to exit via a console break event,
// killing outright when the event cannot be delivered.
func terminate(p *os.Process) error {
	if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(p.Pid)); err != nil {
		return p.Kill()
	}
	return nil
}

func forwardedSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
