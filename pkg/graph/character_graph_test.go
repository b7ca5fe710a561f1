package graph

import (
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/inkforge/castmap/pkg/model"
	"github.com/inkforge/castmap/pkg/scanner"
)

func testOptions() Options {
	return Options{ProximityWindow: 50, PruneThreshold: 0.05}
}

func newTestCharacter(name string, role model.CharacterRole) model.Character {
	return model.Character{ID: uuid.New(), Name: name, Role: role}
}

func TestBuildEmptyRoster(t *testing.T) {
	payload, err := Build(nil, nil, nil, testOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(payload.Nodes) != 0 || len(payload.Edges) != 0 {
		t.Errorf("Expected empty payload, got %d nodes, %d edges", len(payload.Nodes), len(payload.Edges))
	}
	if payload.Metrics.ConnectedComponents != 0 {
		t.Errorf("Expected 0 components, got %d", payload.Metrics.ConnectedComponents)
	}
}

func TestBuildUnmentionedCharacter(t *testing.T) {
	alice := newTestCharacter("Alice", model.RoleProtagonist)

	payload, err := Build([]model.Character{alice}, map[string]string{}, map[string][]scanner.Mention{}, testOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(payload.Nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(payload.Nodes))
	}
	node := payload.Nodes[0]
	if node.MentionCount != 0 || node.IsMapped {
		t.Errorf("Expected unmapped node with 0 mentions, got %+v", node)
	}
	if node.Valence != 0 {
		t.Errorf("Expected valence 0 for unmentioned character, got %f", node.Valence)
	}
	if node.FirstMention != nil {
		t.Errorf("Expected no first mention, got %+v", node.FirstMention)
	}
	if len(payload.Edges) != 0 {
		t.Errorf("Expected 0 edges, got %d", len(payload.Edges))
	}
	if payload.Metrics.IsolationRatio != 1.0 {
		t.Errorf("Expected isolation ratio 1.0, got %f", payload.Metrics.IsolationRatio)
	}
	// A single character cannot have edges; density divides by 1, not 0
	if payload.Metrics.NetworkDensity != 0 {
		t.Errorf("Expected density 0, got %f", payload.Metrics.NetworkDensity)
	}
}

func TestBuildCoPresence(t *testing.T) {
	alice := newTestCharacter("Alice", model.RoleProtagonist)
	bob := newTestCharacter("Bob", model.RoleSecondary)

	texts := map[string]string{"ch1": "Alice walked into the room. Bob was already there."}
	mentions := map[string][]scanner.Mention{
		"ch1": {
			{Offset: 0, WordIndex: 0, CharacterID: alice.ID},
			{Offset: 28, WordIndex: 5, CharacterID: bob.ID},
		},
	}

	payload, err := Build([]model.Character{alice, bob}, texts, mentions, testOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, n := range payload.Nodes {
		if !n.IsMapped || n.MentionCount != 1 {
			t.Errorf("Expected mapped node with 1 mention, got %+v", n)
		}
	}

	if len(payload.Edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(payload.Edges))
	}
	edge := payload.Edges[0]
	if edge.Weight < 1.0 {
		t.Errorf("Expected weight >= 1.0 from co-presence, got %f", edge.Weight)
	}
	if edge.InteractionType != model.InteractionCoPresence {
		t.Errorf("Expected co_presence, got %s", edge.InteractionType)
	}

	// Co-presence + proximity bonus: 1.0 + 0.1 * 50/5
	want := 1.0 + ProximityBonus(5, 50, 0.1)
	if math.Abs(edge.Weight-want) > 1e-9 {
		t.Errorf("Expected weight %f, got %f", want, edge.Weight)
	}

	m := payload.Metrics
	if m.NetworkDensity != 1.0 || m.ConnectedComponents != 1 || m.LargestComponentSize != 2 || m.IsolationRatio != 0 {
		t.Errorf("Unexpected metrics: %+v", m)
	}
}

func TestBuildValenceOrdering(t *testing.T) {
	hero := newTestCharacter("Hero", model.RoleProtagonist)
	extra := newTestCharacter("Extra", model.RoleExtra)

	texts := map[string]string{"ch1": "", "ch2": ""}
	mentions := map[string][]scanner.Mention{
		"ch1": {
			{Offset: 0, WordIndex: 0, CharacterID: hero.ID},
			{Offset: 20, WordIndex: 3, CharacterID: hero.ID},
		},
		"ch2": {
			{Offset: 0, WordIndex: 0, CharacterID: extra.ID},
		},
	}

	payload, err := Build([]model.Character{hero, extra}, texts, mentions, testOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var heroValence, extraValence float64
	for _, n := range payload.Nodes {
		switch n.ID {
		case hero.ID.String():
			heroValence = n.Valence
		case extra.ID.String():
			extraValence = n.Valence
		}
	}

	if heroValence <= extraValence {
		t.Errorf("Expected valence(Hero) > valence(Extra), got %f <= %f", heroValence, extraValence)
	}
	if want := math.Log(3) * 2.0; math.Abs(heroValence-want) > 1e-9 {
		t.Errorf("Expected hero valence %f, got %f", want, heroValence)
	}
	if want := math.Log(2) * 1.0; math.Abs(extraValence-want) > 1e-9 {
		t.Errorf("Expected extra valence %f, got %f", want, extraValence)
	}

	// Mentions in separate chapters make no edges
	if len(payload.Edges) != 0 {
		t.Errorf("Expected 0 edges across separate chapters, got %d", len(payload.Edges))
	}
}

func TestBuildFirstMentionFollowsChapterOrder(t *testing.T) {
	alice := newTestCharacter("Alice", model.RoleProtagonist)

	texts := map[string]string{"ch1": "", "ch2": ""}
	mentions := map[string][]scanner.Mention{
		"ch1": {{Offset: 12, WordIndex: 2, CharacterID: alice.ID}},
		"ch2": {{Offset: 3, WordIndex: 0, CharacterID: alice.ID}},
	}

	opts := testOptions()
	opts.ChapterOrder = []string{"ch2", "ch1"}

	payload, err := Build([]model.Character{alice}, texts, mentions, opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	first := payload.Nodes[0].FirstMention
	if first == nil || first.ChapterID != "ch2" || first.CharOffset != 3 {
		t.Errorf("Expected first mention in ch2 at offset 3, got %+v", first)
	}
}

func TestBuildPrunesWeakEdges(t *testing.T) {
	a := newTestCharacter("A", model.RoleSecondary)
	b := newTestCharacter("B", model.RoleSecondary)

	texts := map[string]string{"ch1": ""}
	mentions := map[string][]scanner.Mention{
		"ch1": {
			{Offset: 0, WordIndex: 0, CharacterID: a.ID},
			{Offset: 100, WordIndex: 25, CharacterID: b.ID},
		},
	}

	opts := testOptions()
	opts.PruneThreshold = 5.0 // Above co-presence + any possible bonus

	payload, err := Build([]model.Character{a, b}, texts, mentions, opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(payload.Edges) != 0 {
		t.Fatalf("Expected pruned graph with 0 edges, got %d", len(payload.Edges))
	}
	if payload.Metrics.IsolationRatio != 1.0 {
		t.Errorf("Expected both characters isolated after pruning, got %f", payload.Metrics.IsolationRatio)
	}
	if payload.Metrics.ConnectedComponents != 0 {
		t.Errorf("Expected 0 components without edges, got %d", payload.Metrics.ConnectedComponents)
	}
}

func TestBuildIsCommutative(t *testing.T) {
	a := newTestCharacter("A", model.RoleProtagonist)
	b := newTestCharacter("B", model.RoleAntagonist)
	c := newTestCharacter("C", model.RoleExtra)
	roster := []model.Character{a, b, c}

	texts := map[string]string{"ch1": "", "ch2": "", "ch3": ""}
	build := func(order []string) *model.CharacterGraphPayload {
		mentions := map[string][]scanner.Mention{}
		for _, id := range order {
			switch id {
			case "ch1":
				mentions["ch1"] = []scanner.Mention{
					{Offset: 0, WordIndex: 0, CharacterID: a.ID},
					{Offset: 40, WordIndex: 8, CharacterID: b.ID},
				}
			case "ch2":
				mentions["ch2"] = []scanner.Mention{
					{Offset: 5, WordIndex: 1, CharacterID: b.ID},
					{Offset: 90, WordIndex: 20, CharacterID: c.ID},
				}
			case "ch3":
				mentions["ch3"] = []scanner.Mention{
					{Offset: 0, WordIndex: 0, CharacterID: a.ID},
				}
			}
		}
		opts := testOptions()
		opts.ChapterOrder = []string{"ch1", "ch2", "ch3"}
		payload, err := Build(roster, texts, mentions, opts)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		return payload
	}

	first := build([]string{"ch1", "ch2", "ch3"})
	second := build([]string{"ch3", "ch2", "ch1"})

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Build result depends on chapter insertion order:\n%+v\nvs\n%+v", first, second)
	}
}

func TestBuildMissingChapterText(t *testing.T) {
	a := newTestCharacter("A", model.RoleSecondary)

	mentions := map[string][]scanner.Mention{
		"ch1": {{Offset: 0, WordIndex: 0, CharacterID: a.ID}},
	}

	_, err := Build([]model.Character{a}, map[string]string{}, mentions, testOptions())
	if err == nil {
		t.Fatal("Expected error when mention map references a chapter with no text entry")
	}
}

func TestProximityBonus(t *testing.T) {
	if got := ProximityBonus(10, 50, 0.1); got <= 0 {
		t.Errorf("Expected positive bonus within window, got %f", got)
	}
	if got := ProximityBonus(100, 50, 0.1); got != 0 {
		t.Errorf("Expected zero bonus beyond window, got %f", got)
	}
	if got := ProximityBonus(0, 50, 0.1); got != 0 {
		t.Errorf("Expected zero bonus at distance 0, got %f", got)
	}
	if ProximityBonus(5, 50, 0.1) <= ProximityBonus(10, 50, 0.1) {
		t.Error("Expected bonus to decay as distance grows")
	}
}
