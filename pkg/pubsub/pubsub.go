package pubsub

import (
	"context"
	"encoding/json"
)

// Topic names used by the server.
const (
	TopicAnalysisStatus = "analysis_status"
	TopicResearchUpdate = "research_update"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "analysis_status", "research_update")
	Type    string          `json:"type"`    // Event type (e.g., "scanning", "graph_ready", "file_added")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// AnalysisStatus reports the progress of a character graph analysis run
type AnalysisStatus struct {
	State    string `json:"state"`    // scanning, building_graph, ready, failed
	Message  string `json:"message"`  // Human-readable status message
	Chapters int    `json:"chapters"` // Chapters processed so far
	Total    int    `json:"total"`    // Total chapters in this run
}

// ResearchUpdate describes a change observed in the research vault
type ResearchUpdate struct {
	Kind     string `json:"kind"`     // file_added, file_removed, file_changed
	Path     string `json:"path"`     // Path relative to the research directory
	Artifact string `json:"artifact"` // Artifact ID, empty for removals
}
