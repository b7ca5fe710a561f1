package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Manifest holds the ordered chapter tree of a project.
type Manifest struct {
	Chapters []Chapter `json:"chapters"`
}

// CreateChapter builds a new chapter under the given parent ("" for root).
// The new chapter is ordered after its last sibling. The caller is
// responsible for appending it to the manifest and creating the file.
func (m *Manifest) CreateChapter(parentID, title string) Chapter {
	id := fmt.Sprintf("chapter-%s", uuid.New())

	maxOrder := -1
	for _, c := range m.Chapters {
		if c.ParentID == parentID && c.Order > maxOrder {
			maxOrder = c.Order
		}
	}

	return Chapter{
		ID:       id,
		ParentID: parentID,
		Title:    title,
		Filename: id + ".md",
		Order:    maxOrder + 1,
	}
}

// FindChapter returns the chapter with the given id, or false.
func (m *Manifest) FindChapter(id string) (Chapter, bool) {
	for _, c := range m.Chapters {
		if c.ID == id {
			return c, true
		}
	}
	return Chapter{}, false
}

// RemoveNodeRecursively removes a chapter and its entire subtree from the
// manifest and returns the filenames of everything removed so the caller
// can delete the backing files.
func (m *Manifest) RemoveNodeRecursively(nodeID string) []string {
	children := make(map[string][]string)
	for _, c := range m.Chapters {
		children[c.ParentID] = append(children[c.ParentID], c.ID)
	}

	remove := make(map[string]bool)
	stack := []string{nodeID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if remove[cur] {
			continue
		}
		remove[cur] = true
		stack = append(stack, children[cur]...)
	}

	var filenames []string
	kept := m.Chapters[:0]
	for _, c := range m.Chapters {
		if remove[c.ID] {
			filenames = append(filenames, c.Filename)
		} else {
			kept = append(kept, c)
		}
	}
	m.Chapters = kept

	return filenames
}

// UpdateNodeMetadata applies a partial metadata update to a chapter.
// Returns false if the chapter does not exist.
func (m *Manifest) UpdateNodeMetadata(nodeID string, upd NodeMetadataUpdate) bool {
	for i := range m.Chapters {
		if m.Chapters[i].ID != nodeID {
			continue
		}
		c := &m.Chapters[i]
		if upd.Title != nil {
			c.Title = *upd.Title
		}
		if upd.WordCount != nil {
			c.WordCount = *upd.WordCount
		}
		if upd.ChronologicalDate != nil {
			c.ChronologicalDate = *upd.ChronologicalDate
		}
		if upd.AbstractTimeframe != nil {
			c.AbstractTimeframe = *upd.AbstractTimeframe
		}
		if upd.PlotlineTag != nil {
			c.PlotlineTag = *upd.PlotlineTag
		}
		if upd.POVCharacterID != nil {
			c.POVCharacterID = *upd.POVCharacterID
		}
		return true
	}
	return false
}
