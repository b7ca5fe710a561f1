// Package research maintains an index of the project's research vault
// and watches it for changes.
package research

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IndexFileName is the index stored at the root of the research directory.
const IndexFileName = ".research-index.json"

// Artifact describes a single file in the research vault
type Artifact struct {
	ID       uuid.UUID `json:"id"`
	Path     string    `json:"path"` // Relative to the research directory, slash-separated
	Type     string    `json:"type"` // pdf, image, text, other
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Index maps vault-relative paths to artifacts
type Index struct {
	Artifacts map[string]Artifact `json:"artifacts"`
}

// Change describes a difference found while reconciling the index
type Change struct {
	Kind     string // file_added, file_removed, file_changed
	Path     string
	Artifact uuid.UUID // Zero for removals
}

// NewIndex returns an empty index
func NewIndex() *Index {
	return &Index{Artifacts: make(map[string]Artifact)}
}

// LoadIndex reads the index file from the research directory.
// A missing or corrupt index yields an empty one.
func LoadIndex(researchDir string) *Index {
	data, err := os.ReadFile(filepath.Join(researchDir, IndexFileName))
	if err != nil {
		return NewIndex()
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return NewIndex()
	}
	if idx.Artifacts == nil {
		idx.Artifacts = make(map[string]Artifact)
	}
	return &idx
}

// Save writes the index file to the research directory
func (idx *Index) Save(researchDir string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal research index: %w", err)
	}

	path := filepath.Join(researchDir, IndexFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write research index: %w", err)
	}
	return nil
}

// Reconcile walks the research directory and updates the index to match
// what is on disk. It returns the changes it applied, sorted by path.
func (idx *Index) Reconcile(researchDir string) ([]Change, error) {
	seen := make(map[string]bool)
	var changes []Change

	err := filepath.WalkDir(researchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		if d.IsDir() {
			// Skip hidden directories such as .git
			if path != researchDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil // Index file and other dotfiles are not artifacts
		}

		rel, err := filepath.Rel(researchDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		info, err := d.Info()
		if err != nil {
			return nil
		}

		existing, ok := idx.Artifacts[rel]
		switch {
		case !ok:
			art := Artifact{
				ID:       uuid.New(),
				Path:     rel,
				Type:     ArtifactType(rel),
				Size:     info.Size(),
				Modified: info.ModTime(),
			}
			idx.Artifacts[rel] = art
			changes = append(changes, Change{Kind: "file_added", Path: rel, Artifact: art.ID})
		case existing.Size != info.Size() || !existing.Modified.Equal(info.ModTime()):
			existing.Size = info.Size()
			existing.Modified = info.ModTime()
			idx.Artifacts[rel] = existing
			changes = append(changes, Change{Kind: "file_changed", Path: rel, Artifact: existing.ID})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk research directory: %w", err)
	}

	// Anything in the index that was not seen on disk has been removed
	for rel := range idx.Artifacts {
		if !seen[rel] {
			delete(idx.Artifacts, rel)
			changes = append(changes, Change{Kind: "file_removed", Path: rel})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// ArtifactType classifies a vault file by its extension
func ArtifactType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return "image"
	case ".md", ".txt":
		return "text"
	default:
		return "other"
	}
}
