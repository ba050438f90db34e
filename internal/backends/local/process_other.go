//go:build !unix

package local

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// terminate kills directly; there is no graceful signal to send.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
