package svclaunch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// recordingSpawner records requests instead of creating processes
type recordingSpawner struct {
	mu       sync.Mutex
	requests []SpawnRequest
	// fail maps a service directory to the error its spawn returns
	fail    map[string]error
	nextPID int
}

func newRecordingSpawner() *recordingSpawner {
	return &recordingSpawner{fail: make(map[string]error), nextPID: 1000}
}

func (s *recordingSpawner) Spawn(_ context.Context, req SpawnRequest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if err, ok := s.fail[req.Dir]; ok {
		return 0, err
	}
	s.nextPID++
	return s.nextPID, nil
}

// dirs returns the working directory of every recorded spawn
func (s *recordingSpawner) dirs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirs := make([]string, 0, len(s.requests))
	for _, req := range s.requests {
		dirs = append(dirs, req.Dir)
	}
	return dirs
}

func (s *recordingSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// memoryRecorder keeps spawn records in memory
type memoryRecorder struct {
	mu      sync.Mutex
	records []SpawnRecord
	err     error
}

func (m *memoryRecorder) Record(rec SpawnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

// makeTree creates files under root. Keys ending in "/" are directories,
// everything else is a file with the given content.
func makeTree(t *testing.T, root string, layout map[string]string) {
	t.Helper()

	for rel, content := range layout {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

// scenarioTree builds the alpha/beta/.git/readme.txt layout
func scenarioTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"alpha/startup.sh": "#!/bin/sh\nexit 0\n",
		"beta/":            "",
		".git/startup.sh":  "#!/bin/sh\nexit 0\n",
		"readme.txt":       "not a service\n",
	})
	return root
}

// discardLogger returns a logger that drops everything
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestLauncher builds a launcher with a recording spawner and captured status output
func newTestLauncher(t *testing.T, root string, opts ...LauncherOption) (*Launcher, *recordingSpawner, *bytes.Buffer) {
	t.Helper()

	spawner := newRecordingSpawner()
	var status bytes.Buffer

	base := []LauncherOption{
		WithSpawner(spawner),
		WithStatusWriter(&status),
		WithLogger(discardLogger()),
	}
	l, err := New(root, append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return l, spawner, &status
}
