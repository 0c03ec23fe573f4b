//go:build unix

package fixture

import (
	"errors"
	"os"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the child's process group.
func terminate(p *os.Process) error {
	return signalGroup(p, syscall.SIGTERM)
}

// kill sends SIGKILL to the child's process group.
func kill(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	if err != nil {
		// Fall back to the process itself if the group is gone.
		return p.Signal(sig)
	}
	return nil
}
