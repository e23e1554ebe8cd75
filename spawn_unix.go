//go:build linux || darwin

package svclaunch

import "syscall"

// sysProcAttr maps the request onto process attributes.
// The runtime applies Credential in the child after fork: setgroups,
// setgid, then setuid, all before exec.
func sysProcAttr(req SpawnRequest) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Setpgid: req.Detach,
	}

	if req.Credential != nil {
		attr.Credential = &syscall.Credential{
			Uid:    req.Credential.Uid,
			Gid:    req.Credential.Gid,
			Groups: append([]uint32(nil), req.Credential.Groups...),
		}
	}

	return attr
}
