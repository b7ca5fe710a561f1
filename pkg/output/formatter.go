package output

import (
	"fmt"
	"sort"

	"github.com/fatih/color"

	"github.com/inkforge/castmap/pkg/model"
)

// PrintCastReport prints a colorized summary of a character graph
func PrintCastReport(projectTitle string, payload *model.CharacterGraphPayload) {
	// Color definitions
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Println("Castmap - Cast Report")
	bold.Println("=====================")
	fmt.Printf("Project: %s\n", projectTitle)
	fmt.Printf("Characters: %d  Interactions: %d\n", len(payload.Nodes), len(payload.Edges))
	fmt.Println()

	if len(payload.Nodes) == 0 {
		yellow.Println("No characters in the roster yet.")
		return
	}

	// Characters by narrative weight, heaviest first
	nodes := make([]model.GraphNode, len(payload.Nodes))
	copy(nodes, payload.Nodes)
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Valence != nodes[j].Valence {
			return nodes[i].Valence > nodes[j].Valence
		}
		return nodes[i].Label < nodes[j].Label
	})

	connected := make(map[string]bool)
	for _, e := range payload.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}

	bold.Println("CAST:")
	for _, n := range nodes {
		if n.MentionCount == 0 {
			yellow.Printf("  %-24s (never mentioned)\n", n.Label)
			continue
		}
		fmt.Printf("  %-24s valence %6.2f  mentions %4d", n.Label, n.Valence, n.MentionCount)
		if n.FirstMention != nil {
			cyan.Printf("  first seen in %s", n.FirstMention.ChapterID)
		}
		if !connected[n.ID] {
			yellow.Printf("  [isolated]")
		}
		fmt.Println()
	}
	fmt.Println()

	// Strongest relationships
	if len(payload.Edges) > 0 {
		edges := make([]model.GraphEdge, len(payload.Edges))
		copy(edges, payload.Edges)
		sort.Slice(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })

		labels := make(map[string]string, len(payload.Nodes))
		for _, n := range payload.Nodes {
			labels[n.ID] = n.Label
		}

		bold.Println("STRONGEST RELATIONSHIPS:")
		limit := 10
		if len(edges) < limit {
			limit = len(edges)
		}
		for _, e := range edges[:limit] {
			fmt.Printf("  %s <-> %s", labels[e.Source], labels[e.Target])
			cyan.Printf("  weight %.2f (%s)\n", e.Weight, e.InteractionType)
		}
		fmt.Println()
	}

	// Metrics summary, colored by how connected the cast is
	m := payload.Metrics
	summaryColor := green
	if m.IsolationRatio > 0.25 {
		summaryColor = yellow
	}
	summaryColor.Printf("Network: density %.3f, %d component(s), largest %d, isolation %.0f%%\n",
		m.NetworkDensity, m.ConnectedComponents, m.LargestComponentSize, m.IsolationRatio*100)

	if m.IsolationRatio == 0 && len(payload.Edges) > 0 {
		green.Println("✓ Every character is connected to the story!")
	}
}
