package svclaunch

import (
	"io/fs"
	"time"
)

// Services tree layout constants
const (
	// ServicesDirName is the services root relative to the launcher's install directory
	ServicesDirName = "s"

	// StartupScript is the script whose presence makes a service directory launchable
	StartupScript = "startup.sh"

	// ManifestFile is the optional per-service metadata file
	ManifestFile = "manifest.json"

	// HiddenPrefix marks directory entries that are never considered
	HiddenPrefix = "."

	// StatusPrefix starts the line printed for every attempted service
	StatusPrefix = "Starting service: "

	// DefaultShell is the interpreter used to run startup scripts
	DefaultShell = "/bin/sh"

	// DefaultWatchDebounce is how long a new service directory must be quiet
	// before it is started in watch mode
	DefaultWatchDebounce = 50 * time.Millisecond
)

// File modes
const (
	// DirMode is the default mode for created directories
	DirMode = 0o755

	// FileMode is the default mode for created files
	FileMode = 0o644

	// ExecMode is the default mode for executable scripts
	ExecMode = 0o755
)

// Operation identifies the launcher step an error came from
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpDiscover lists the services root
	OpDiscover
	// OpStart prints the status line and checks for a startup script
	OpStart
	// OpSpawn creates the child process
	OpSpawn
	// OpResolve resolves the run-as account
	OpResolve
	// OpRecord writes a spawn record
	OpRecord
	// OpManifest reads a service manifest
	OpManifest
	// OpBuild scaffolds a service directory
	OpBuild
	// OpWatch watches the services root for new services
	OpWatch
)

// Operation string constants
const (
	opUnknownStr  = "unknown"
	opDiscoverStr = "discover"
	opStartStr    = "start"
	opSpawnStr    = "spawn"
	opResolveStr  = "resolve"
	opRecordStr   = "record"
	opManifestStr = "manifest"
	opBuildStr    = "build"
	opWatchStr    = "watch"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpDiscover:
		return opDiscoverStr
	case OpStart:
		return opStartStr
	case OpSpawn:
		return opSpawnStr
	case OpResolve:
		return opResolveStr
	case OpRecord:
		return opRecordStr
	case OpManifest:
		return opManifestStr
	case OpBuild:
		return opBuildStr
	case OpWatch:
		return opWatchStr
	default:
		return opUnknownStr
	}
}

// DefaultUmask is the umask written into scaffolded startup scripts
var DefaultUmask fs.FileMode = 0o022
