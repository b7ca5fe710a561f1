package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCreateAndLoadProject(t *testing.T) {
	repo := LocalRepository{}
	root := t.TempDir()

	meta, err := CreateProjectStructure(repo, root, "My Novel", "A Writer")
	if err != nil {
		t.Fatalf("CreateProjectStructure failed: %v", err)
	}

	if !repo.Exists(filepath.Join(root, ManuscriptDir)) {
		t.Error("Expected manuscript directory")
	}
	if !repo.Exists(filepath.Join(root, ResearchDir)) {
		t.Error("Expected research directory")
	}

	loaded, err := LoadProjectMetadata(repo, root)
	if err != nil {
		t.Fatalf("LoadProjectMetadata failed: %v", err)
	}
	if loaded.ID != meta.ID || loaded.Title != "My Novel" || loaded.Author != "A Writer" {
		t.Errorf("Loaded metadata mismatch: %+v", loaded)
	}

	// Creating over an existing project fails
	if _, err := CreateProjectStructure(repo, root, "Another", ""); !errors.Is(err, ErrProjectExists) {
		t.Errorf("Expected ErrProjectExists, got %v", err)
	}
}

func TestCreateProjectRequiresTitle(t *testing.T) {
	repo := LocalRepository{}
	if _, err := CreateProjectStructure(repo, t.TempDir(), "   ", ""); err == nil {
		t.Error("Expected error for blank title")
	}
}

func TestChapterContentRoundTrip(t *testing.T) {
	repo := LocalRepository{}
	root := t.TempDir()

	meta, err := CreateProjectStructure(repo, root, "My Novel", "")
	if err != nil {
		t.Fatalf("CreateProjectStructure failed: %v", err)
	}
	chapter := meta.Manifest.CreateChapter("", "Chapter 1")
	meta.Manifest.Chapters = append(meta.Manifest.Chapters, chapter)

	// Unwritten chapters read as empty, not as an error
	content, err := ReadChapterContent(repo, root, meta, chapter.ID)
	if err != nil {
		t.Fatalf("ReadChapterContent failed: %v", err)
	}
	if content != "" {
		t.Errorf("Expected empty content for unwritten chapter, got %q", content)
	}

	if err := WriteChapterFile(repo, root, chapter.Filename, "It begins."); err != nil {
		t.Fatalf("WriteChapterFile failed: %v", err)
	}
	content, err = ReadChapterContent(repo, root, meta, chapter.ID)
	if err != nil {
		t.Fatalf("ReadChapterContent failed: %v", err)
	}
	if content != "It begins." {
		t.Errorf("Expected round trip, got %q", content)
	}

	// Unknown chapter ids are errors
	if _, err := ReadChapterContent(repo, root, meta, "chapter-unknown"); !errors.Is(err, ErrChapterNotFound) {
		t.Errorf("Expected ErrChapterNotFound, got %v", err)
	}

	// Deleting is idempotent
	if err := DeleteChapterFile(repo, root, chapter.Filename); err != nil {
		t.Fatalf("DeleteChapterFile failed: %v", err)
	}
	if err := DeleteChapterFile(repo, root, chapter.Filename); err != nil {
		t.Fatalf("DeleteChapterFile should tolerate a missing file: %v", err)
	}
}
