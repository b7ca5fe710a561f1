package model

import (
	"time"

	"github.com/google/uuid"
)

// ProjectMetadata is the root document of a project, persisted as
// project.json in the project directory.
type ProjectMetadata struct {
	ID         uuid.UUID       `json:"id"`
	Title      string          `json:"title"`
	Author     string          `json:"author"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Settings   ProjectSettings `json:"settings"`
	Manifest   Manifest        `json:"manifest"`
	Characters []Character     `json:"characters"`
	Plotlines  []Plotline      `json:"plotlines"`
}

// ProjectSettings holds writer-facing targets.
type ProjectSettings struct {
	DailyTarget int `json:"dailyTarget"`
	WordTarget  int `json:"wordTarget"`
}

// Plotline tags chapters for swimlane grouping in the editor.
type Plotline struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DefaultSettings returns the settings a fresh project starts with.
func DefaultSettings() ProjectSettings {
	return ProjectSettings{DailyTarget: 2000, WordTarget: 50000}
}

// NewProjectMetadata creates metadata for a fresh project with one default
// plotline and an empty manuscript.
func NewProjectMetadata(title, author string) *ProjectMetadata {
	now := time.Now().UTC()
	return &ProjectMetadata{
		ID:        uuid.New(),
		Title:     title,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
		Settings:  DefaultSettings(),
		Plotlines: []Plotline{{ID: "main", Name: "Main Plot", Color: "#3b82f6"}},
	}
}

// Clone returns an independent copy of the metadata. The manifest,
// roster (including aliases), and plotline slices are copied so later
// mutations cannot reach a previously returned snapshot.
func (p *ProjectMetadata) Clone() *ProjectMetadata {
	out := *p
	out.Manifest.Chapters = append([]Chapter(nil), p.Manifest.Chapters...)
	out.Plotlines = append([]Plotline(nil), p.Plotlines...)
	out.Characters = make([]Character, len(p.Characters))
	for i, c := range p.Characters {
		c.Aliases = append([]string(nil), c.Aliases...)
		out.Characters[i] = c
	}
	return &out
}

// AddOrUpdateCharacter upserts a roster entry by id.
func (p *ProjectMetadata) AddOrUpdateCharacter(c Character) {
	for i := range p.Characters {
		if p.Characters[i].ID == c.ID {
			p.Characters[i] = c
			return
		}
	}
	p.Characters = append(p.Characters, c)
}

// RemoveCharacter deletes a roster entry by id. Returns false if absent.
func (p *ProjectMetadata) RemoveCharacter(id uuid.UUID) bool {
	for i := range p.Characters {
		if p.Characters[i].ID == id {
			p.Characters = append(p.Characters[:i], p.Characters[i+1:]...)
			return true
		}
	}
	return false
}
