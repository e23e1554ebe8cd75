//go:build !linux && !darwin

package svclaunch

// Account switching is not available on this platform
func canSwitchTo(_ int) bool {
	return false
}

func alreadyRunningAs(_ int) bool {
	return false
}
