package svclaunch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// SpawnRecord describes one process created by the launcher.
// The launcher only emits records; shutdown or restart tooling consumes them.
type SpawnRecord struct {
	// RunID identifies the launcher run that spawned the process
	RunID string `json:"run_id"`
	// Service is the service directory name
	Service string `json:"service"`
	// Path is the absolute service directory
	Path string `json:"path"`
	// PID is the process ID of the startup script's shell
	PID int `json:"pid"`
	// StartTime is when the spawn returned
	StartTime time.Time `json:"start_time"`
}

// Recorder receives a SpawnRecord for every successful spawn
type Recorder interface {
	Record(rec SpawnRecord) error
}

// FileRecorder appends records to a JSON-lines file.
// Every append rewrites the file atomically so readers never see a torn line.
type FileRecorder struct {
	// Path is the record file
	Path string

	mu sync.Mutex
}

// NewFileRecorder returns a FileRecorder writing to path
func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{Path: path}
}

// Record appends rec to the file, creating the file and its directory as needed
func (f *FileRecorder) Record(rec SpawnRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return &OpError{Op: OpRecord, Path: f.Path, Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := os.ReadFile(f.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &OpError{Op: OpRecord, Path: f.Path, Err: err}
	}
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		existing = append(existing, '\n')
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), DirMode); err != nil {
		return &OpError{Op: OpRecord, Path: f.Path, Err: fmt.Errorf("creating record directory: %w", err)}
	}

	data := append(existing, line...)
	data = append(data, '\n')
	if err := renameio.WriteFile(f.Path, data, FileMode); err != nil {
		return &OpError{Op: OpRecord, Path: f.Path, Err: err}
	}

	return nil
}

// ReadRecords loads every record from a file written by FileRecorder.
// A missing file yields no records.
func ReadRecords(path string) ([]SpawnRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &OpError{Op: OpRecord, Path: path, Err: err}
	}

	var records []SpawnRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec SpawnRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return records, &OpError{Op: OpRecord, Path: path, Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, &OpError{Op: OpRecord, Path: path, Err: err}
	}

	return records, nil
}
