package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const snapshotsDir = ".snapshots"

// maxSnapshotsPerChapter caps retained snapshots so long-lived projects
// do not exhaust disk.
const maxSnapshotsPerChapter = 50

func chapterSnapshotsDir(root, chapterID string) string {
	return filepath.Join(root, ManuscriptDir, snapshotsDir, chapterID)
}

// CreateSnapshot stores content as a new snapshot for a chapter and
// returns the snapshot filename. Returns "" when the content is identical
// to the latest snapshot (dedup by content hash in the filename).
func CreateSnapshot(repo FileRepository, root, chapterID, content string) (string, error) {
	dir := chapterSnapshotsDir(root, chapterID)
	if !repo.Exists(dir) {
		if err := repo.MkdirAll(dir); err != nil {
			return "", fmt.Errorf("creating snapshots dir: %w", err)
		}
	}

	sum := sha256.Sum256([]byte(content))
	shortHash := hex.EncodeToString(sum[:])[:8]

	entries, err := snapshotEntries(repo, dir)
	if err != nil {
		return "", err
	}
	if len(entries) > 0 {
		latest := filepath.Base(entries[len(entries)-1])
		if strings.HasSuffix(latest, "_"+shortHash+".md") {
			return "", nil
		}
	}

	filename := fmt.Sprintf("%s_%s.md", time.Now().UTC().Format("2006-01-02T150405"), shortHash)
	if err := repo.Write(filepath.Join(dir, filename), content); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	// Best-effort retention: drop the oldest beyond the cap.
	entries, err = snapshotEntries(repo, dir)
	if err == nil && len(entries) > maxSnapshotsPerChapter {
		for _, path := range entries[:len(entries)-maxSnapshotsPerChapter] {
			_ = repo.Remove(path)
		}
	}

	return filename, nil
}

// ListSnapshots returns snapshot filenames for a chapter, oldest first.
func ListSnapshots(repo FileRepository, root, chapterID string) ([]string, error) {
	dir := chapterSnapshotsDir(root, chapterID)
	if !repo.Exists(dir) {
		return nil, nil
	}
	entries, err := snapshotEntries(repo, dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, path := range entries {
		names = append(names, filepath.Base(path))
	}
	return names, nil
}

// ReadSnapshotContent returns the content of one snapshot.
func ReadSnapshotContent(repo FileRepository, root, chapterID, filename string) (string, error) {
	return repo.Read(filepath.Join(chapterSnapshotsDir(root, chapterID), filename))
}

// RestoreSnapshot writes a snapshot's content back to the chapter file,
// snapshotting the current content first so the restore is reversible.
// Returns the restored content.
func RestoreSnapshot(repo FileRepository, root, chapterID, snapshotFilename, currentContent, chapterFilename string) (string, error) {
	if _, err := CreateSnapshot(repo, root, chapterID, currentContent); err != nil {
		return "", err
	}
	content, err := ReadSnapshotContent(repo, root, chapterID, snapshotFilename)
	if err != nil {
		return "", err
	}
	if err := WriteChapterFile(repo, root, chapterFilename, content); err != nil {
		return "", err
	}
	return content, nil
}

// snapshotEntries lists .md snapshots in dir, sorted by name. Timestamped
// names sort chronologically.
func snapshotEntries(repo FileRepository, dir string) ([]string, error) {
	all, err := repo.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	entries := all[:0]
	for _, path := range all {
		if filepath.Ext(path) == ".md" {
			entries = append(entries, path)
		}
	}
	return entries, nil
}
