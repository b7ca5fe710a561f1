package model

// InteractionType describes how two characters relate in the graph.
type InteractionType string

const (
	// InteractionCoPresence means both characters appear in the same chapter.
	InteractionCoPresence InteractionType = "co_presence"
	// InteractionReference means one character is mentioned near another
	// without chapter-level co-presence being recorded.
	InteractionReference InteractionType = "reference"
)

// MentionLocation points at a character mention for click-to-jump.
type MentionLocation struct {
	ChapterID  string `json:"chapterId"`
	CharOffset int    `json:"charOffset"`
}

// GraphNode is one character in the interaction graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Valence is the importance score: ln(1 + mentions) × role weight.
	Valence      float64          `json:"valence"`
	MentionCount int              `json:"mentionCount"`
	IsMapped     bool             `json:"isMapped"`
	FirstMention *MentionLocation `json:"firstMention,omitempty"`
}

// GraphEdge is one weighted character pair.
type GraphEdge struct {
	Source          string          `json:"source"`
	Target          string          `json:"target"`
	Weight          float64         `json:"weight"`
	InteractionType InteractionType `json:"interactionType"`
}

// GraphMetrics summarizes the connectivity of the whole graph.
type GraphMetrics struct {
	NetworkDensity       float64 `json:"networkDensity"`
	ConnectedComponents  int     `json:"connectedComponents"`
	LargestComponentSize int     `json:"largestComponentSize"`
	IsolationRatio       float64 `json:"isolationRatio"`
}

// CharacterGraphPayload is the complete analysis result.
type CharacterGraphPayload struct {
	Nodes   []GraphNode  `json:"nodes"`
	Edges   []GraphEdge  `json:"edges"`
	Metrics GraphMetrics `json:"metrics"`
}
