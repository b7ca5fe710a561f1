package model

// Chapter is one node in the manifest tree. Chapters may nest (parts,
// acts, scenes); only leaf content files carry text, but the engine does
// not distinguish: a chapter with an empty file simply yields no mentions.
type Chapter struct {
	ID        string `json:"id"`
	ParentID  string `json:"parentId,omitempty"`
	Title     string `json:"title"`
	Filename  string `json:"filename"`
	WordCount int    `json:"wordCount"`
	Order     int    `json:"order"`
	// Optional timeline metadata carried for the editor UI.
	ChronologicalDate string `json:"chronologicalDate,omitempty"`
	AbstractTimeframe string `json:"abstractTimeframe,omitempty"`
	PlotlineTag       string `json:"plotlineTag,omitempty"`
	POVCharacterID    string `json:"povCharacterId,omitempty"`
}

// NodeMetadataUpdate carries the mutable subset of chapter metadata for
// partial updates. Nil pointers mean "leave unchanged".
type NodeMetadataUpdate struct {
	Title             *string `json:"title,omitempty"`
	WordCount         *int    `json:"wordCount,omitempty"`
	ChronologicalDate *string `json:"chronologicalDate,omitempty"`
	AbstractTimeframe *string `json:"abstractTimeframe,omitempty"`
	PlotlineTag       *string `json:"plotlineTag,omitempty"`
	POVCharacterID    *string `json:"povCharacterId,omitempty"`
}
