//go:build linux || darwin

// Package unix provides platform-specific privilege helpers.
package unix

import "golang.org/x/sys/unix"

// Geteuid returns the effective user ID of the launcher.
func Geteuid() int {
	return unix.Geteuid()
}

// CanSwitchTo reports whether a child may be started under uid.
// Root may switch to any uid; anyone else only to their own.
func CanSwitchTo(uid int) bool {
	euid := unix.Geteuid()
	return euid == 0 || euid == uid
}
