// Package graph turns raw character mentions into a pruned, weighted
// interaction graph with connectivity metrics.
package graph

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/inkforge/castmap/pkg/model"
	"github.com/inkforge/castmap/pkg/scanner"
)

// Weights configures how narrative roles and mention proximity translate
// into node valence and edge weight.
type Weights struct {
	Protagonist        float64
	Antagonist         float64
	Secondary          float64
	Extra              float64
	BaseProximityBonus float64
}

// DefaultWeights orders roles Protagonist > Antagonist > Secondary > Extra.
func DefaultWeights() Weights {
	return Weights{
		Protagonist:        2.0,
		Antagonist:         1.8,
		Secondary:          1.5,
		Extra:              1.0,
		BaseProximityBonus: 0.1,
	}
}

func roleWeight(role model.CharacterRole, w Weights) float64 {
	switch role {
	case model.RoleProtagonist:
		return w.Protagonist
	case model.RoleAntagonist:
		return w.Antagonist
	case model.RoleSecondary:
		return w.Secondary
	default:
		return w.Extra
	}
}

// ProximityBonus is the extra edge weight for two mentions wordDistance
// words apart. Zero at distance 0 and beyond the window, decaying as the
// distance grows.
func ProximityBonus(wordDistance, proximityWindow int, baseBonus float64) float64 {
	if wordDistance == 0 || wordDistance > proximityWindow {
		return 0
	}
	return baseBonus * float64(proximityWindow) / float64(wordDistance)
}

// Options configures one graph build.
type Options struct {
	ProximityWindow int
	PruneThreshold  float64
	// ChapterOrder fixes the chapter traversal order (manuscript order),
	// which determines first-mention locations. Chapters absent from the
	// mention map are skipped; when empty, chapter ids are sorted.
	ChapterOrder []string
	// Weights overrides DefaultWeights when non-nil.
	Weights *Weights
}

// pairKey is an unordered character pair, stored with a < b.
type pairKey struct{ a, b int }

// linearMention is a mention flattened to roster index and word position.
type linearMention struct{ offset, word, idx int }

func makePair(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Build aggregates per-chapter mentions into the final payload. Every
// chapter present in chapterMentions must have an entry in chapterTexts;
// a missing entry indicates a coordinator bug and fails the build.
// Accumulation is commutative, so chapter scan completion order never
// affects the result.
func Build(
	characters []model.Character,
	chapterTexts map[string]string,
	chapterMentions map[string][]scanner.Mention,
	opts Options,
) (*model.CharacterGraphPayload, error) {
	nChars := len(characters)
	if nChars == 0 {
		return &model.CharacterGraphPayload{
			Nodes: []model.GraphNode{},
			Edges: []model.GraphEdge{},
		}, nil
	}

	weights := DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	charIdx := make(map[string]int, nChars)
	for i, c := range characters {
		charIdx[c.ID.String()] = i
	}

	mentionCounts := make([]int, nChars)
	firstMentions := make([]*model.MentionLocation, nChars)
	pairWeights := make(map[pairKey]float64)
	pairKinds := make(map[pairKey]model.InteractionType)

	for _, chapterID := range chapterOrder(chapterMentions, opts.ChapterOrder) {
		mentions := chapterMentions[chapterID]
		if len(mentions) == 0 {
			continue
		}
		if _, ok := chapterTexts[chapterID]; !ok {
			return nil, fmt.Errorf("content missing for analyzed chapter %q", chapterID)
		}

		// Counts, first mentions, and the distinct cast of this chapter.
		present := make(map[int]bool)
		indexed := make([]linearMention, 0, len(mentions))
		for _, m := range mentions {
			idx, ok := charIdx[m.CharacterID.String()]
			if !ok {
				continue
			}
			mentionCounts[idx]++
			if firstMentions[idx] == nil {
				firstMentions[idx] = &model.MentionLocation{
					ChapterID:  chapterID,
					CharOffset: m.Offset,
				}
			}
			present[idx] = true
			indexed = append(indexed, linearMention{offset: m.Offset, word: m.WordIndex, idx: idx})
		}

		// Chapter-level co-presence: +1.0 per distinct pair, regardless
		// of distance.
		presentIdx := make([]int, 0, len(present))
		for idx := range present {
			presentIdx = append(presentIdx, idx)
		}
		sort.Ints(presentIdx)
		for i := 0; i < len(presentIdx); i++ {
			for j := i + 1; j < len(presentIdx); j++ {
				key := makePair(presentIdx[i], presentIdx[j])
				pairWeights[key] += 1.0
				pairKinds[key] = model.InteractionCoPresence
			}
		}

		// Proximity bonuses over a monotonic sliding window on word
		// indexes, not all pairs.
		sort.Slice(indexed, func(i, j int) bool {
			if indexed[i].word != indexed[j].word {
				return indexed[i].word < indexed[j].word
			}
			return indexed[i].offset < indexed[j].offset
		})
		for i := 0; i < len(indexed); i++ {
			a := indexed[i]
			for j := i + 1; j < len(indexed); j++ {
				b := indexed[j]
				dist := b.word - a.word
				if dist > opts.ProximityWindow {
					break
				}
				if a.idx == b.idx {
					continue
				}
				key := makePair(a.idx, b.idx)
				pairWeights[key] += ProximityBonus(dist, opts.ProximityWindow, weights.BaseProximityBonus)
				if _, ok := pairKinds[key]; !ok {
					pairKinds[key] = model.InteractionReference
				}
			}
		}
	}

	nodes := make([]model.GraphNode, 0, nChars)
	for i, c := range characters {
		count := mentionCounts[i]
		nodes = append(nodes, model.GraphNode{
			ID:           c.ID.String(),
			Label:        c.Name,
			Valence:      math.Log(1+float64(count)) * roleWeight(c.Role, weights),
			MentionCount: count,
			IsMapped:     count > 0,
			FirstMention: firstMentions[i],
		})
	}

	// Prune, then compute connectivity over the retained edges only.
	retained := make([]pairKey, 0, len(pairWeights))
	for key, weight := range pairWeights {
		if weight >= opts.PruneThreshold {
			retained = append(retained, key)
		}
	}
	sort.Slice(retained, func(i, j int) bool {
		if retained[i].a != retained[j].a {
			return retained[i].a < retained[j].a
		}
		return retained[i].b < retained[j].b
	})

	ug := simple.NewUndirectedGraph()
	connected := make(map[int]bool)
	edges := make([]model.GraphEdge, 0, len(retained))
	for _, key := range retained {
		kind := pairKinds[key]
		if kind == "" {
			kind = model.InteractionReference
		}
		edges = append(edges, model.GraphEdge{
			Source:          characters[key.a].ID.String(),
			Target:          characters[key.b].ID.String(),
			Weight:          pairWeights[key],
			InteractionType: kind,
		})
		connected[key.a] = true
		connected[key.b] = true
		ug.SetEdge(simple.Edge{F: simple.Node(int64(key.a)), T: simple.Node(int64(key.b))})
	}

	components := topo.ConnectedComponents(ug)
	largest := 0
	for _, comp := range components {
		if len(comp) > largest {
			largest = len(comp)
		}
	}

	maxEdges := 1
	if nChars > 1 {
		maxEdges = nChars * (nChars - 1) / 2
	}

	return &model.CharacterGraphPayload{
		Nodes: nodes,
		Edges: edges,
		Metrics: model.GraphMetrics{
			NetworkDensity:       float64(len(edges)) / float64(maxEdges),
			ConnectedComponents:  len(components),
			LargestComponentSize: largest,
			IsolationRatio:       float64(nChars-len(connected)) / float64(nChars),
		},
	}, nil
}

// chapterOrder returns the chapter traversal order: the caller-supplied
// manuscript order filtered to chapters that have mentions, plus any
// leftovers in sorted order so nothing is silently dropped.
func chapterOrder(chapterMentions map[string][]scanner.Mention, preferred []string) []string {
	order := make([]string, 0, len(chapterMentions))
	seen := make(map[string]bool, len(chapterMentions))
	for _, id := range preferred {
		if _, ok := chapterMentions[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range chapterMentions {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
