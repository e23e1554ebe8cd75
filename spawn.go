package svclaunch

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Credential is the identity a spawned process switches to before exec
type Credential struct {
	// Uid is the user ID
	Uid uint32
	// Gid is the primary group ID
	Gid uint32
	// Groups are the supplementary group IDs
	Groups []uint32
}

// SpawnRequest describes one startup script invocation
type SpawnRequest struct {
	// Shell is the interpreter, argv[0]
	Shell string
	// Script is the startup script path, argv[1]
	Script string
	// Dir is the working directory of the child
	Dir string
	// Env is the child environment; nil inherits the launcher's
	Env []string
	// Credential is applied in the child before exec; nil inherits
	Credential *Credential
	// Detach places the child in its own process group
	Detach bool
	// Stdout receives the child's standard output
	Stdout io.Writer
	// Stderr receives the child's standard error
	Stderr io.Writer
}

// Argv returns the argument vector of the request
func (r SpawnRequest) Argv() []string {
	return []string{r.Shell, r.Script}
}

// Spawner creates the OS process for a SpawnRequest.
// Spawn must return as soon as the process exists.
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (pid int, err error)
}

// ExecSpawner spawns processes with os/exec
type ExecSpawner struct{}

// Spawn starts the script and returns its PID without waiting for it.
// The child is reaped in the background; its exit status is discarded.
func (ExecSpawner) Spawn(ctx context.Context, req SpawnRequest) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cmd := buildCmd(req)

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

// buildCmd constructs the exec.Cmd for req.
// The command is not bound to a context since the child outlives the launcher.
func buildCmd(req SpawnRequest) *exec.Cmd {
	//nolint:gosec // running service startup scripts is the launcher's job
	cmd := exec.Command(req.Shell, req.Script)
	cmd.Dir = req.Dir
	cmd.Env = req.Env

	cmd.Stdout = req.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = req.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	cmd.SysProcAttr = sysProcAttr(req)

	return cmd
}
