//go:build linux || darwin

package svclaunch

import (
	"context"
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestRunAsInherit(t *testing.T) {
	for _, r := range []RunAs{Inherit(), {}, ParseRunAs(""), ParseRunAs("   ")} {
		if !r.IsInherit() {
			t.Errorf("%v should be inherit", r)
		}
		id, err := r.Resolve()
		if err != nil || id != nil {
			t.Errorf("Resolve() = (%v, %v), want (nil, nil)", id, err)
		}
	}

	if got := Account("www").String(); got != "account:www" {
		t.Errorf("String() = %q", got)
	}
	if got := Inherit().String(); got != "inherit" {
		t.Errorf("String() = %q", got)
	}
}

func TestRunAsUnknownAccount(t *testing.T) {
	_, err := Account("svclaunch-no-such-user-x9").Resolve()
	if err == nil {
		t.Fatal("expected error for unknown account")
	}

	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != OpResolve {
		t.Fatalf("error = %v, want OpResolve OpError", err)
	}
	if !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("error %v should wrap ErrUnknownAccount", err)
	}
}

func TestNewFailsOnUnknownAccount(t *testing.T) {
	spawner := newRecordingSpawner()
	_, err := New(t.TempDir(), WithRunAs(Account("svclaunch-no-such-user-x9")), WithSpawner(spawner))
	if err == nil {
		t.Fatal("expected New to fail for unknown account")
	}
	if spawner.count() != 0 {
		t.Error("nothing may be spawned when the account cannot be resolved")
	}
}

func currentAccount(t *testing.T) *user.User {
	t.Helper()
	u, err := user.Current()
	if err != nil {
		t.Skipf("current user unavailable: %v", err)
	}
	return u
}

func TestRunAsCurrentUser(t *testing.T) {
	u := currentAccount(t)

	id, err := Account(u.Username).Resolve()
	if err != nil {
		t.Fatal(err)
	}

	if id.Account != u.Username {
		t.Errorf("Account = %q, want %q", id.Account, u.Username)
	}
	if id.Home != u.HomeDir {
		t.Errorf("Home = %q, want %q", id.Home, u.HomeDir)
	}

	// Switching to the identity the launcher already has needs no credential.
	if id.Credential != nil {
		t.Errorf("Credential = %+v, want nil when already running as %s", id.Credential, u.Username)
	}
}

func TestRunAsRootToNobody(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	nobody, err := user.Lookup("nobody")
	if err != nil {
		t.Skip("no nobody account")
	}

	id, err := Account("nobody").Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if id.Credential == nil {
		t.Fatal("root switching to nobody needs a credential")
	}
	if got := id.Credential.Uid; strconv.FormatUint(uint64(got), 10) != nobody.Uid {
		t.Errorf("Uid = %d, want %s", got, nobody.Uid)
	}
	if got := id.Credential.Gid; strconv.FormatUint(uint64(got), 10) != nobody.Gid {
		t.Errorf("Gid = %d, want %s", got, nobody.Gid)
	}
}

func TestRunAsNotPrivileged(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root may switch to any account")
	}
	if _, err := user.Lookup("root"); err != nil {
		t.Skip("no root account")
	}

	_, err := Account("root").Resolve()
	if !errors.Is(err, ErrNotPrivileged) {
		t.Fatalf("error = %v, want ErrNotPrivileged", err)
	}
}

func TestIdentityEnviron(t *testing.T) {
	id := &Identity{Account: "www", Home: "/home/www"}
	base := []string{"PATH=/usr/bin", "HOME=/root", "USER=root", "LOGNAME=root", "PWD=/", "LANG=C"}

	env := id.Environ(base, "/srv/s/chat")

	values := make(map[string]string)
	counts := make(map[string]int)
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		values[k] = v
		counts[k]++
	}

	want := map[string]string{
		"HOME":    "/home/www",
		"LOGNAME": "www",
		"PWD":     "/srv/s/chat",
		"USER":    "www",
		"PATH":    "/usr/bin",
		"LANG":    "C",
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("%s = %q, want %q", k, values[k], v)
		}
		if counts[k] != 1 {
			t.Errorf("%s appears %d times", k, counts[k])
		}
	}
}

func TestLauncherAppliesIdentity(t *testing.T) {
	u := currentAccount(t)
	root := t.TempDir()
	makeTree(t, root, map[string]string{"svc/startup.sh": "#!/bin/sh\n"})

	l, spawner, _ := newTestLauncher(t, root, WithRunAs(Account(u.Username)))
	if _, err := l.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if spawner.count() != 1 {
		t.Fatalf("got %d spawns, want 1", spawner.count())
	}
	req := spawner.requests[0]

	env := strings.Join(req.Env, "\n")
	for _, kv := range []string{
		"HOME=" + u.HomeDir,
		"LOGNAME=" + u.Username,
		"USER=" + u.Username,
		"PWD=" + filepath.Join(root, "svc"),
	} {
		if !strings.Contains(env, kv+"\n") && !strings.HasSuffix(env, kv) {
			t.Errorf("environment missing %q", kv)
		}
	}
}

func TestBuildCmdCredential(t *testing.T) {
	req := SpawnRequest{
		Shell:      DefaultShell,
		Script:     "/srv/s/chat/startup.sh",
		Dir:        "/srv/s/chat",
		Credential: &Credential{Uid: 65534, Gid: 65534, Groups: []uint32{65534}},
		Detach:     true,
	}

	cmd := buildCmd(req)

	if cmd.Dir != req.Dir {
		t.Errorf("Dir = %q, want %q", cmd.Dir, req.Dir)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != DefaultShell || cmd.Args[1] != req.Script {
		t.Errorf("Args = %v", cmd.Args)
	}
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setpgid {
		t.Fatal("detached command should get its own process group")
	}
	cred := cmd.SysProcAttr.Credential
	if cred == nil || cred.Uid != 65534 || cred.Gid != 65534 || len(cred.Groups) != 1 {
		t.Errorf("Credential = %+v", cred)
	}

	inherit := buildCmd(SpawnRequest{Shell: DefaultShell, Script: "x", Dir: "/"})
	if inherit.SysProcAttr.Credential != nil || inherit.SysProcAttr.Setpgid {
		t.Errorf("inherit SysProcAttr = %+v", inherit.SysProcAttr)
	}
	if inherit.Env != nil {
		t.Error("inherit must leave Env nil")
	}
	if inherit.Stdout != os.Stdout || inherit.Stderr != os.Stderr {
		t.Error("children share the launcher's stdout and stderr by default")
	}
}
