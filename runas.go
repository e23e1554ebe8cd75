package svclaunch

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
	"strings"
)

// RunAs selects the identity spawned startup scripts run under.
// The zero value is Inherit.
type RunAs struct {
	account string
}

// Inherit runs children with the launcher's own privileges and environment
func Inherit() RunAs {
	return RunAs{}
}

// Account runs children as the named unprivileged account
func Account(name string) RunAs {
	return RunAs{account: name}
}

// ParseRunAs maps a config value to a RunAs; empty means Inherit
func ParseRunAs(s string) RunAs {
	return Account(strings.TrimSpace(s))
}

// IsInherit reports whether no account switch is requested
func (r RunAs) IsInherit() bool {
	return r.account == ""
}

// AccountName returns the requested account, empty for Inherit
func (r RunAs) AccountName() string {
	return r.account
}

// String returns the string representation of the RunAs
func (r RunAs) String() string {
	if r.IsInherit() {
		return "inherit"
	}
	return "account:" + r.account
}

// Identity is a resolved run-as account
type Identity struct {
	// Account is the login name
	Account string
	// Home is the account's home directory
	Home string
	// Credential is applied to children; nil when the launcher already
	// runs as the account
	Credential *Credential
}

// Environment variables replaced for demoted children
var identityEnvKeys = []string{"HOME", "LOGNAME", "PWD", "USER"}

// Resolve looks up the account once so that every spawn in a run shares it.
// It returns nil for Inherit.
func (r RunAs) Resolve() (*Identity, error) {
	if r.IsInherit() {
		return nil, nil
	}

	u, err := user.Lookup(r.account)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			err = fmt.Errorf("%w: %w", ErrUnknownAccount, err)
		}
		return nil, &OpError{Op: OpResolve, Path: r.account, Err: err}
	}

	uid, err := parseID(u.Uid)
	if err != nil {
		return nil, &OpError{Op: OpResolve, Path: r.account, Err: fmt.Errorf("parsing uid: %w", err)}
	}
	gid, err := parseID(u.Gid)
	if err != nil {
		return nil, &OpError{Op: OpResolve, Path: r.account, Err: fmt.Errorf("parsing gid: %w", err)}
	}

	if !canSwitchTo(int(uid)) {
		return nil, &OpError{Op: OpResolve, Path: r.account, Err: ErrNotPrivileged}
	}

	id := &Identity{
		Account: u.Username,
		Home:    u.HomeDir,
	}

	if !alreadyRunningAs(int(uid)) {
		groups, err := supplementaryGroups(u, gid)
		if err != nil {
			return nil, &OpError{Op: OpResolve, Path: r.account, Err: err}
		}
		id.Credential = &Credential{Uid: uid, Gid: gid, Groups: groups}
	}

	return id, nil
}

// Environ returns base with HOME, LOGNAME, PWD and USER replaced for dir
func (id *Identity) Environ(base []string, dir string) []string {
	env := make([]string, 0, len(base)+len(identityEnvKeys))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if isIdentityKey(key) {
			continue
		}
		env = append(env, kv)
	}

	return append(env,
		"HOME="+id.Home,
		"LOGNAME="+id.Account,
		"PWD="+dir,
		"USER="+id.Account,
	)
}

func isIdentityKey(key string) bool {
	for _, k := range identityEnvKeys {
		if k == key {
			return true
		}
	}
	return false
}

func supplementaryGroups(u *user.User, gid uint32) ([]uint32, error) {
	ids, err := u.GroupIds()
	if err != nil {
		// Accounts without group database entries keep only their primary group.
		return []uint32{gid}, nil
	}

	groups := make([]uint32, 0, len(ids))
	for _, s := range ids {
		g, err := parseID(s)
		if err != nil {
			return nil, fmt.Errorf("parsing group id %q: %w", s, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func parseID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
