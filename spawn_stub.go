//go:build !linux && !darwin

package svclaunch

import "syscall"

// sysProcAttr has no process-group or credential support on this platform
func sysProcAttr(_ SpawnRequest) *syscall.SysProcAttr {
	return nil
}
