// Package project tracks the set of loaded projects and serializes
// mutations to their metadata.
package project

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkforge/castmap/pkg/model"
	"github.com/inkforge/castmap/pkg/storage"
)

// ErrNotLoaded is returned when an operation targets a project that is
// not in the registry.
var ErrNotLoaded = errors.New("project not loaded")

// Context is one loaded project: its root path and current metadata.
type Context struct {
	Path     string
	Metadata *model.ProjectMetadata
}

// Manager is the registry of loaded projects. One RWMutex guards both
// the registry and the metadata it holds: reads take the read lock and
// return deep copies, mutations hold the write lock through persist so
// mutate-then-save is atomic and never races a concurrent snapshot.
type Manager struct {
	repo storage.FileRepository

	mu       sync.RWMutex
	projects map[uuid.UUID]*Context
}

// NewManager creates an empty registry over the given repository.
func NewManager(repo storage.FileRepository) *Manager {
	return &Manager{
		repo:     repo,
		projects: make(map[uuid.UUID]*Context),
	}
}

// GetContext returns the root path and a metadata snapshot for a loaded
// project.
func (m *Manager) GetContext(projectID uuid.UUID) (string, *model.ProjectMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctx, ok := m.projects[projectID]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrNotLoaded, projectID)
	}
	return ctx.Path, ctx.Metadata.Clone(), nil
}

// Mutate applies a mutation to a project's metadata, bumps its updated
// timestamp, persists it, and returns the updated snapshot.
func (m *Manager) Mutate(projectID uuid.UUID, mutation func(*model.ProjectMetadata) error) (*model.ProjectMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, projectID)
	}

	if err := mutation(ctx.Metadata); err != nil {
		return nil, err
	}
	ctx.Metadata.UpdatedAt = time.Now().UTC()

	if err := storage.SaveProjectMetadata(m.repo, ctx.Path, ctx.Metadata); err != nil {
		return nil, err
	}

	return ctx.Metadata.Clone(), nil
}

// Create initializes a new project on disk and registers it.
func (m *Manager) Create(path, title, author string) (*model.ProjectMetadata, error) {
	meta, err := storage.CreateProjectStructure(m.repo, path, title, author)
	if err != nil {
		return nil, err
	}
	m.register(meta.ID, path, meta)
	return meta, nil
}

// Load reads a project from disk and registers it.
func (m *Manager) Load(path string) (*model.ProjectMetadata, error) {
	meta, err := storage.LoadProjectMetadata(m.repo, path)
	if err != nil {
		return nil, err
	}
	m.register(meta.ID, path, meta)
	return meta, nil
}

// Unload removes a project from the registry. Files stay on disk.
func (m *Manager) Unload(projectID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, projectID)
}

// IsLoaded reports whether a project is in the registry.
func (m *Manager) IsLoaded(projectID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.projects[projectID]
	return ok
}

// LoadedIDs returns the ids of all loaded projects.
func (m *Manager) LoadedIDs() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.projects))
	for id := range m.projects {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) register(id uuid.UUID, path string, meta *model.ProjectMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[id] = &Context{Path: path, Metadata: meta}
}
