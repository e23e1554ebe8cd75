package svclaunch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Service is a directory under the services root that may be launched
type Service struct {
	// Name is the directory name
	Name string
	// Path is the absolute path of the service directory
	Path string
	// HasStartup reports whether startup.sh was present at discovery time
	HasStartup bool
	// Manifest is the parsed manifest.json, nil when absent or malformed
	Manifest *Manifest
	// ManifestErr holds the error from a malformed manifest
	ManifestErr error
}

// ScriptPath returns the path of the service's startup script
func (s Service) ScriptPath() string {
	return filepath.Join(s.Path, StartupScript)
}

// DefaultRoot returns <launcher_directory>/s for the running executable.
// Entry points call it only when no services root was configured.
func DefaultRoot() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving launcher location: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	dir, err := filepath.Abs(filepath.Dir(executable))
	if err != nil {
		return "", fmt.Errorf("resolving launcher directory: %w", err)
	}

	return filepath.Join(dir, ServicesDirName), nil
}

// Discover lists the service directories directly under root.
//
// Entries starting with "." are skipped, as are entries that are not
// directories after following symlinks. Results follow the order the
// filesystem returns entries in, which is unspecified.
func Discover(root string) ([]Service, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &OpError{Op: OpDiscover, Path: root, Err: fmt.Errorf("%w: %w", ErrServicesRoot, err)}
	}

	dir, err := os.Open(absRoot)
	if err != nil {
		return nil, &OpError{Op: OpDiscover, Path: absRoot, Err: fmt.Errorf("%w: %w", ErrServicesRoot, err)}
	}
	defer func() { _ = dir.Close() }()

	// (*os.File).ReadDir keeps directory order; os.ReadDir would sort.
	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, &OpError{Op: OpDiscover, Path: absRoot, Err: fmt.Errorf("%w: %w", ErrServicesRoot, err)}
	}

	services := make([]Service, 0, len(entries))
	for _, entry := range entries {
		svc, ok := inspect(absRoot, entry.Name())
		if ok {
			services = append(services, svc)
		}
	}

	return services, nil
}

// inspect decides whether name under root is a service directory
func inspect(root, name string) (Service, bool) {
	if name == "" || strings.HasPrefix(name, HiddenPrefix) {
		return Service{}, false
	}

	path := filepath.Join(root, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return Service{}, false
	}

	svc := Service{
		Name:       name,
		Path:       path,
		HasStartup: fileExists(filepath.Join(path, StartupScript)),
	}
	svc.Manifest, svc.ManifestErr = LoadManifest(path)

	return svc, true
}

// fileExists reports whether path exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
