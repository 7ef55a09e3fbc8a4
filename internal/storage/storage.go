package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/teamtemp/internal/source"
)

// FileName is the registry file inside the data directory.
const FileName = "sources.json"

// document is the on-disk layout of the registry file.
type document struct {
	UpdatedAt string          `json:"updated_at"`
	Sources   []source.Source `json:"sources"`
}

// Storage handles persistence of the source registry as a JSON file.
type Storage struct {
	dataDir string
}

// New creates a Storage rooted at dataDir, creating the directory if needed.
func New(dataDir string) (*Storage, error) {
	dataDir, err := PrepareDir(dataDir)
	if err != nil {
		return nil, err
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// PrepareDir expands a leading ~/ in dir and creates the directory.
func PrepareDir(dir string) (string, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dir, nil
}

// Path returns the path of the registry file.
func (s *Storage) Path() string {
	return filepath.Join(s.dataDir, FileName)
}

// Load reads the registry. A missing file is an empty registry.
func (s *Storage) Load(_ context.Context) ([]source.Source, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return []source.Source{}, nil
		}
		return nil, fmt.Errorf("reading sources: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}
	if doc.Sources == nil {
		doc.Sources = []source.Source{}
	}
	return doc.Sources, nil
}

// Save writes the registry atomically: temp file, fsync, rename.
func (s *Storage) Save(ctx context.Context, sources []source.Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sources == nil {
		sources = []source.Source{}
	}

	doc := document{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Sources:   sources,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}

	return writeAtomic(s.Path(), data)
}

func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName) // nolint:errcheck
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
