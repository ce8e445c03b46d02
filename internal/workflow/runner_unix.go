//go:build unix

package workflow

import (
	"os/exec"
	"syscall"
)

// detach places the child in its own process group so a terminal SIGINT
// reaches the orchestrator only.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
