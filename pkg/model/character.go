package model

import (
	"github.com/google/uuid"
)

// CharacterRole classifies a character's narrative function. It is used
// only for importance weighting in the interaction graph.
type CharacterRole string

const (
	RoleProtagonist CharacterRole = "protagonist"
	RoleAntagonist  CharacterRole = "antagonist"
	RoleSecondary   CharacterRole = "secondary"
	RoleExtra       CharacterRole = "extra"
)

// Character is one entry in a project's cast roster.
type Character struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Role        CharacterRole `json:"role"`
	Aliases     []string      `json:"aliases,omitempty"`
	Archetype   string        `json:"archetype,omitempty"`
	Description string        `json:"description,omitempty"`
	Notes       string        `json:"notes,omitempty"`
}
