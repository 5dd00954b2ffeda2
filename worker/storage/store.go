package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists job artifacts under <filesDir>/out and hands back the
// public URL each one is served from. Artifact names derive from the job id,
// so a re-run overwrites rather than duplicates.
type FileStore struct {
	outDir  string
	baseURL string
}

func NewFileStore(filesDir, basePublicURL string) (*FileStore, error) {
	outDir := filepath.Join(filesDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{
		outDir:  outDir,
		baseURL: strings.TrimRight(basePublicURL, "/"),
	}, nil
}

func (s *FileStore) Save(name string, data []byte) (string, error) {
	name = filepath.Base(name)
	if err := os.WriteFile(filepath.Join(s.outDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return s.baseURL + "/files/" + url.PathEscape(name), nil
}
