// Package storage persists projects as plain files: a project.json root
// document, chapter markdown under manuscript/, and content snapshots
// under manuscript/.snapshots/.
package storage

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileInfo is the cheap metadata used for cache freshness checks.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// FileRepository abstracts file access so the engine can be tested
// without a real filesystem.
type FileRepository interface {
	Read(path string) (string, error)
	Write(path string, content string) error
	Stat(path string) (FileInfo, error)
	Remove(path string) error
	// ReadDir returns the full paths of directory entries, sorted.
	ReadDir(path string) ([]string, error)
	MkdirAll(path string) error
	Exists(path string) bool
}

// LocalRepository is the os-backed FileRepository.
type LocalRepository struct{}

func (LocalRepository) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (LocalRepository) Write(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func (LocalRepository) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (LocalRepository) Remove(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(path)
}

func (LocalRepository) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, filepath.Join(path, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (LocalRepository) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (LocalRepository) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
