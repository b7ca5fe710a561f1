package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/inkforge/castmap/pkg/model"
)

const (
	// ManuscriptDir holds chapter files, relative to the project root.
	ManuscriptDir = "manuscript"
	// ResearchDir holds the research vault, relative to the project root.
	ResearchDir = "research"
	// MetadataFile is the project root document.
	MetadataFile = "project.json"
)

// ErrProjectExists is returned when creating over an existing project.
var ErrProjectExists = errors.New("project already exists")

// ErrChapterNotFound is returned when a chapter id is not in the manifest.
var ErrChapterNotFound = errors.New("chapter not found")

// CreateProjectStructure initializes a new project directory with its
// metadata document and an empty manuscript folder.
func CreateProjectStructure(repo FileRepository, root, title, author string) (*model.ProjectMetadata, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("project title must not be empty")
	}
	metaPath := filepath.Join(root, MetadataFile)
	if repo.Exists(metaPath) {
		return nil, fmt.Errorf("%w at %s", ErrProjectExists, root)
	}

	if err := repo.MkdirAll(filepath.Join(root, ManuscriptDir)); err != nil {
		return nil, fmt.Errorf("creating manuscript dir: %w", err)
	}
	if err := repo.MkdirAll(filepath.Join(root, ResearchDir)); err != nil {
		return nil, fmt.Errorf("creating research dir: %w", err)
	}

	meta := model.NewProjectMetadata(title, author)
	if err := SaveProjectMetadata(repo, root, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// LoadProjectMetadata reads and decodes project.json from root.
func LoadProjectMetadata(repo FileRepository, root string) (*model.ProjectMetadata, error) {
	content, err := repo.Read(filepath.Join(root, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("reading project metadata: %w", err)
	}
	var meta model.ProjectMetadata
	if err := json.Unmarshal([]byte(content), &meta); err != nil {
		return nil, fmt.Errorf("decoding project metadata: %w", err)
	}
	return &meta, nil
}

// SaveProjectMetadata writes project.json to root.
func SaveProjectMetadata(repo FileRepository, root string, meta *model.ProjectMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project metadata: %w", err)
	}
	if err := repo.Write(filepath.Join(root, MetadataFile), string(data)); err != nil {
		return fmt.Errorf("writing project metadata: %w", err)
	}
	return nil
}

// ResolveChapterPath maps a chapter id to its file path via the manifest.
func ResolveChapterPath(root string, meta *model.ProjectMetadata, chapterID string) (string, error) {
	chapter, ok := meta.Manifest.FindChapter(chapterID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrChapterNotFound, chapterID)
	}
	return filepath.Join(root, ManuscriptDir, chapter.Filename), nil
}

// ReadChapterContent returns a chapter's text. A chapter whose file does
// not exist yet reads as empty, not as an error.
func ReadChapterContent(repo FileRepository, root string, meta *model.ProjectMetadata, chapterID string) (string, error) {
	path, err := ResolveChapterPath(root, meta, chapterID)
	if err != nil {
		return "", err
	}
	if !repo.Exists(path) {
		return "", nil
	}
	return repo.Read(path)
}

// WriteChapterFile writes a chapter file, creating the manuscript
// directory if needed.
func WriteChapterFile(repo FileRepository, root, filename, content string) error {
	dir := filepath.Join(root, ManuscriptDir)
	if !repo.Exists(dir) {
		if err := repo.MkdirAll(dir); err != nil {
			return err
		}
	}
	return repo.Write(filepath.Join(dir, filename), content)
}

// DeleteChapterFile removes a chapter file; missing files are not errors.
func DeleteChapterFile(repo FileRepository, root, filename string) error {
	return repo.Remove(filepath.Join(root, ManuscriptDir, filename))
}
