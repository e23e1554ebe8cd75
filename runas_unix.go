//go:build linux || darwin

package svclaunch

import "github.com/axondata/go-svclaunch/internal/unix"

func canSwitchTo(uid int) bool {
	return unix.CanSwitchTo(uid)
}

func alreadyRunningAs(uid int) bool {
	return unix.Geteuid() == uid
}
