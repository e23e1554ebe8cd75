package svclaunch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Launcher starts the startup script of every service under a services root.
// It does not supervise what it starts.
type Launcher struct {
	// Root is the absolute services root
	Root string
	// Shell is the interpreter used for startup scripts
	Shell string
	// RunAs selects the identity of spawned children
	RunAs RunAs
	// Detach places every child in its own process group
	Detach bool
	// FailFast stops a run at the first spawn failure instead of continuing
	FailFast bool
	// WatchDebounce delays starting a service discovered in watch mode
	WatchDebounce time.Duration

	stdout   io.Writer
	spawner  Spawner
	recorder Recorder
	logger   *slog.Logger
	identity *Identity

	mu        sync.Mutex
	runID     string
	attempted map[string]struct{}
}

// LauncherOption configures a Launcher
type LauncherOption func(*Launcher)

// WithShell sets the interpreter used for startup scripts
func WithShell(shell string) LauncherOption {
	return func(l *Launcher) {
		l.Shell = shell
	}
}

// WithRunAs sets the identity spawned children run under
func WithRunAs(r RunAs) LauncherOption {
	return func(l *Launcher) {
		l.RunAs = r
	}
}

// WithDetach controls whether children get their own process group
func WithDetach(detach bool) LauncherOption {
	return func(l *Launcher) {
		l.Detach = detach
	}
}

// WithFailFast stops a run at the first spawn failure
func WithFailFast(failFast bool) LauncherOption {
	return func(l *Launcher) {
		l.FailFast = failFast
	}
}

// WithWatchDebounce sets the settle time for services found in watch mode
func WithWatchDebounce(d time.Duration) LauncherOption {
	return func(l *Launcher) {
		l.WatchDebounce = d
	}
}

// WithStatusWriter sets where "Starting service" lines are written
func WithStatusWriter(w io.Writer) LauncherOption {
	return func(l *Launcher) {
		l.stdout = w
	}
}

// WithSpawner replaces the process spawner
func WithSpawner(s Spawner) LauncherOption {
	return func(l *Launcher) {
		l.spawner = s
	}
}

// WithRecorder sets the receiver of spawn records
func WithRecorder(r Recorder) LauncherOption {
	return func(l *Launcher) {
		l.recorder = r
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) LauncherOption {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// New creates a Launcher for the services root.
// A run-as account is resolved here, so an unknown account fails before
// anything is spawned.
func New(root string, opts ...LauncherOption) (*Launcher, error) {
	if root == "" {
		return nil, fmt.Errorf("services root not specified")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving services root: %w", err)
	}

	l := &Launcher{
		Root:          absRoot,
		Shell:         DefaultShell,
		Detach:        true,
		WatchDebounce: DefaultWatchDebounce,
		stdout:        os.Stdout,
		spawner:       ExecSpawner{},
		logger:        slog.Default(),
		runID:         uuid.NewString(),
		attempted:     make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.Shell == "" {
		l.Shell = DefaultShell
	}

	identity, err := l.RunAs.Resolve()
	if err != nil {
		return nil, err
	}
	l.identity = identity

	return l, nil
}

// RunID returns the identifier stamped on spawn records of the current run
func (l *Launcher) RunID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runID
}

// Report summarizes one launcher run
type Report struct {
	// RunID identifies the run
	RunID string
	// Spawned has one record per created process
	Spawned []SpawnRecord
	// Skipped lists service directories without a startup script
	Skipped []Service
}

// Run discovers the services under Root and starts each one in listing order.
//
// A missing or unreadable root is returned as a fatal error before any
// spawn. Spawn failures are logged and collected into a *MultiError while
// the run continues, unless FailFast is set.
func (l *Launcher) Run(ctx context.Context) (*Report, error) {
	runID := l.beginRun()
	report := &Report{RunID: runID}

	services, err := Discover(l.Root)
	if err != nil {
		return report, err
	}

	l.logger.Debug("discovered services", "root", l.Root, "count", len(services), "run_id", runID)

	merr := &MultiError{}
	for _, svc := range services {
		rec, err := l.start(ctx, svc)
		if err != nil {
			merr.Add(err)
			if l.FailFast {
				break
			}
			continue
		}
		if rec == nil {
			report.Skipped = append(report.Skipped, svc)
			continue
		}
		report.Spawned = append(report.Spawned, *rec)
	}

	return report, merr.Err()
}

// Start launches one service directory.
//
// It prints the status line, then spawns startup.sh if present and returns
// without waiting for it. A directory without startup.sh yields (nil, nil).
func (l *Launcher) Start(ctx context.Context, path string) (*SpawnRecord, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &OpError{Op: OpStart, Path: path, Err: err}
	}

	svc := Service{Name: filepath.Base(absPath), Path: absPath}
	svc.Manifest, svc.ManifestErr = LoadManifest(absPath)

	return l.start(ctx, svc)
}

func (l *Launcher) start(ctx context.Context, svc Service) (*SpawnRecord, error) {
	l.writeStatus(svc.Path)

	if svc.ManifestErr != nil {
		l.logger.Warn("ignoring malformed manifest", "service", svc.Name, "error", svc.ManifestErr)
	}

	script := svc.ScriptPath()
	if !fileExists(script) {
		l.logger.Debug("no startup script", "service", svc.Name, "path", svc.Path)
		return nil, nil
	}

	l.markAttempted(svc.Path)

	req := SpawnRequest{
		Shell:  l.Shell,
		Script: script,
		Dir:    svc.Path,
		Detach: l.Detach,
	}
	if l.identity != nil {
		req.Env = l.identity.Environ(os.Environ(), svc.Path)
		req.Credential = l.identity.Credential
	}

	pid, err := l.spawner.Spawn(ctx, req)
	if err != nil {
		opErr := &OpError{Op: OpSpawn, Path: svc.Path, Err: err}
		l.logger.Error("failed to spawn service", "service", svc.Name, "path", svc.Path, "error", err)
		return nil, opErr
	}

	rec := SpawnRecord{
		RunID:     l.RunID(),
		Service:   svc.Name,
		Path:      svc.Path,
		PID:       pid,
		StartTime: time.Now().UTC(),
	}

	attrs := []any{"service", svc.Name, "path", svc.Path, "pid", pid, "run_id", rec.RunID}
	if svc.Manifest != nil && svc.Manifest.Name != "" {
		attrs = append(attrs, "name", svc.Manifest.Name)
	}
	if l.identity != nil {
		attrs = append(attrs, "account", l.identity.Account)
	}
	l.logger.Info("spawned service", attrs...)

	if l.recorder != nil {
		if err := l.recorder.Record(rec); err != nil {
			l.logger.Warn("failed to record spawn", "service", svc.Name, "pid", pid, "error", err)
		}
	}

	return &rec, nil
}

// flusher is implemented by buffered status writers
type flusher interface {
	Flush() error
}

// writeStatus prints the status line and flushes it before the child can
// write to the same terminal
func (l *Launcher) writeStatus(path string) {
	if l.stdout == nil {
		return
	}

	if _, err := io.WriteString(l.stdout, StatusPrefix+path+"\n"); err != nil {
		l.logger.Debug("writing status line", "path", path, "error", err)
	}
	if f, ok := l.stdout.(flusher); ok {
		_ = f.Flush()
	}
}

// beginRun starts a new run: fresh run ID and no attempted services
func (l *Launcher) beginRun() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.runID = uuid.NewString()
	l.attempted = make(map[string]struct{})
	return l.runID
}

// markAttempted records that a spawn was tried for path in this run
func (l *Launcher) markAttempted(path string) {
	l.mu.Lock()
	l.attempted[path] = struct{}{}
	l.mu.Unlock()
}

func (l *Launcher) hasAttempted(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.attempted[path]
	return ok
}
