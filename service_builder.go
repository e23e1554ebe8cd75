package svclaunch

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
)

// ServiceBuilder provides a fluent interface for creating service directories
// with a startup script and an optional manifest.
type ServiceBuilder struct {
	// Name is the service directory name
	Name string
	// Root is the services root the directory is created in
	Root string
	// Cmd is the command and arguments startup.sh executes
	Cmd []string
	// Umask sets the file mode creation mask in startup.sh
	Umask fs.FileMode
	// Env contains environment variables exported by startup.sh
	Env map[string]string
	// Manifest is written to manifest.json when set
	Manifest *Manifest
}

// NewServiceBuilder creates a new ServiceBuilder with default settings
func NewServiceBuilder(name, root string) *ServiceBuilder {
	return &ServiceBuilder{
		Name:  name,
		Root:  root,
		Env:   make(map[string]string),
		Umask: DefaultUmask,
	}
}

// WithCmd sets the command to execute
func (b *ServiceBuilder) WithCmd(cmd []string) *ServiceBuilder {
	b.Cmd = cmd
	return b
}

// WithUmask sets the file mode creation mask
func (b *ServiceBuilder) WithUmask(umask fs.FileMode) *ServiceBuilder {
	b.Umask = umask
	return b
}

// WithEnv adds an environment variable
func (b *ServiceBuilder) WithEnv(key, value string) *ServiceBuilder {
	b.Env[key] = value
	return b
}

// WithManifest sets the manifest written next to startup.sh
func (b *ServiceBuilder) WithManifest(m Manifest) *ServiceBuilder {
	b.Manifest = &m
	return b
}

// Dir returns the service directory the builder creates
func (b *ServiceBuilder) Dir() string {
	return filepath.Join(b.Root, b.Name)
}

// Build creates the service directory, startup.sh and manifest.json
func (b *ServiceBuilder) Build() error {
	if err := ValidateServiceName(b.Name); err != nil {
		return &OpError{Op: OpBuild, Path: b.Name, Err: err}
	}
	if b.Root == "" {
		return &OpError{Op: OpBuild, Path: b.Name, Err: fmt.Errorf("services root not specified")}
	}
	if len(b.Cmd) == 0 {
		return &OpError{Op: OpBuild, Path: b.Dir(), Err: fmt.Errorf("command not specified")}
	}
	for key := range b.Env {
		if !validEnvKey(key) {
			return &OpError{Op: OpBuild, Path: b.Dir(), Err: fmt.Errorf("invalid environment variable name %q", key)}
		}
	}

	serviceDir := b.Dir()
	if err := os.MkdirAll(serviceDir, DirMode); err != nil {
		return &OpError{Op: OpBuild, Path: serviceDir, Err: fmt.Errorf("creating service directory: %w", err)}
	}

	if b.Manifest != nil {
		data, err := json.MarshalIndent(b.Manifest, "", "  ")
		if err != nil {
			return &OpError{Op: OpBuild, Path: serviceDir, Err: fmt.Errorf("encoding manifest: %w", err)}
		}
		manifestFile := filepath.Join(serviceDir, ManifestFile)
		if err := renameio.WriteFile(manifestFile, append(data, '\n'), FileMode); err != nil {
			return &OpError{Op: OpBuild, Path: manifestFile, Err: fmt.Errorf("writing manifest: %w", err)}
		}
	}

	// The script is written last: its appearance is what makes the
	// directory launchable, including to a running watcher.
	startupFile := filepath.Join(serviceDir, StartupScript)
	if err := renameio.WriteFile(startupFile, []byte(b.buildStartupScript()), ExecMode); err != nil {
		return &OpError{Op: OpBuild, Path: startupFile, Err: fmt.Errorf("writing startup script: %w", err)}
	}

	return nil
}

// buildStartupScript generates startup.sh for the service
func (b *ServiceBuilder) buildStartupScript() string {
	var lines []string
	lines = append(lines, "#!/bin/sh")
	lines = append(lines, `cd "$(dirname "$0")" || exit 1`)

	if b.Umask != 0 {
		lines = append(lines, fmt.Sprintf("umask %04o", b.Umask))
	}

	keys := make([]string, 0, len(b.Env))
	for key := range b.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("export %s=%s", key, shellQuote(b.Env[key])))
	}

	cmdParts := make([]string, 0, len(b.Cmd))
	for _, part := range b.Cmd {
		cmdParts = append(cmdParts, shellQuote(part))
	}

	lines = append(lines, "exec "+strings.Join(cmdParts, " "))

	return strings.Join(lines, "\n") + "\n"
}

// ValidateServiceName checks that name is usable as a discoverable service directory
func ValidateServiceName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.HasPrefix(name, HiddenPrefix):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	case strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// validEnvKey reports whether key is a portable shell variable name
func validEnvKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// shellQuote escapes a string for safe use in shell scripts
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}

	if !needsShellQuoting(s) {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// needsShellQuoting checks if a string contains characters that require shell quoting
func needsShellQuoting(s string) bool {
	// Characters that require quoting in shell
	const specialChars = " \t\n'\"\\$`!*?[](){}<>|&;~#="

	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			return true
		}
	}
	return false
}
