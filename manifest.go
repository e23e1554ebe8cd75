package svclaunch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Manifest is the optional metadata a service directory carries in manifest.json
type Manifest struct {
	// Name is the human-readable name of the service
	Name string `json:"name"`
	// DocsURL links to the documentation page that uses the service
	DocsURL string `json:"docsUrl,omitempty"`
	// Description is free text about the service
	Description string `json:"description,omitempty"`
}

// LoadManifest reads manifest.json from dir.
// A missing manifest is not an error: it returns (nil, nil).
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &OpError{Op: OpManifest, Path: path, Err: err}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &OpError{Op: OpManifest, Path: path, Err: fmt.Errorf("decoding manifest: %w", err)}
	}

	return &m, nil
}
