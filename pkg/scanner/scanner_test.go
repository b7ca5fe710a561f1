package scanner

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/inkforge/castmap/pkg/model"
)

func newCharacter(name string, aliases ...string) model.Character {
	return model.Character{
		ID:      uuid.New(),
		Name:    name,
		Role:    model.RoleSecondary,
		Aliases: aliases,
	}
}

func TestScanNamesAndAliases(t *testing.T) {
	robert := newCharacter("Robert", "Bob", "Bobby")
	sc, err := NewCharacterScanner([]model.Character{robert})
	if err != nil {
		t.Fatalf("NewCharacterScanner failed: %v", err)
	}

	text := "Robert met Bob at the market. Bobby was there."
	mentions := sc.Scan(text)

	if len(mentions) != 3 {
		t.Fatalf("Expected 3 mentions, got %d: %+v", len(mentions), mentions)
	}

	wantOffsets := []int{0, 11, 30}
	for i, m := range mentions {
		if m.Offset != wantOffsets[i] {
			t.Errorf("Mention %d: expected offset %d, got %d", i, wantOffsets[i], m.Offset)
		}
		if m.CharacterID != robert.ID {
			t.Errorf("Mention %d: expected character %s, got %s", i, robert.ID, m.CharacterID)
		}
	}
}

func TestScanRespectsWordBoundaries(t *testing.T) {
	character := newCharacter("Bob")
	sc, err := NewCharacterScanner([]model.Character{character})
	if err != nil {
		t.Fatalf("NewCharacterScanner failed: %v", err)
	}

	// "Bobby" contains "Bob" but is not a whole-word mention
	mentions := sc.Scan("Bobby is not Bob")
	if len(mentions) != 1 {
		t.Fatalf("Expected 1 mention, got %d: %+v", len(mentions), mentions)
	}
	if mentions[0].Offset != 13 {
		t.Errorf("Expected offset 13, got %d", mentions[0].Offset)
	}

	// Punctuation is a valid boundary
	mentions = sc.Scan("Hello, Bob!")
	if len(mentions) != 1 {
		t.Fatalf("Expected 1 mention next to punctuation, got %d", len(mentions))
	}
}

func TestScanPrefersLongestMatch(t *testing.T) {
	chris := newCharacter("Chris")
	christopher := newCharacter("Christopher")
	sc, err := NewCharacterScanner([]model.Character{chris, christopher})
	if err != nil {
		t.Fatalf("NewCharacterScanner failed: %v", err)
	}

	mentions := sc.Scan("Christopher arrived late.")
	if len(mentions) != 1 {
		t.Fatalf("Expected 1 mention, got %d: %+v", len(mentions), mentions)
	}
	if mentions[0].CharacterID != christopher.ID {
		t.Error("Expected the longer name to win over its prefix")
	}
}

func TestScanCaseInsensitive(t *testing.T) {
	mira := newCharacter("Mira")
	sc, err := NewCharacterScanner([]model.Character{mira})
	if err != nil {
		t.Fatalf("NewCharacterScanner failed: %v", err)
	}

	mentions := sc.Scan("MIRA shouted. Then mira whispered.")
	if len(mentions) != 2 {
		t.Fatalf("Expected 2 mentions, got %d: %+v", len(mentions), mentions)
	}
}

func TestScanTagForm(t *testing.T) {
	mira := newCharacter("Mira")
	sc, err := NewCharacterScanner([]model.Character{mira})
	if err != nil {
		t.Fatalf("NewCharacterScanner failed: %v", err)
	}

	mentions := sc.Scan("Ping @mira!")
	if len(mentions) != 1 {
		t.Fatalf("Expected 1 mention, got %d: %+v", len(mentions), mentions)
	}
	if mentions[0].Offset != 5 {
		t.Errorf("Expected the tag match at offset 5, got %d", mentions[0].Offset)
	}
}

func TestScanDataIDForm(t *testing.T) {
	mira := newCharacter("Mira")
	sc, err := NewCharacterScanner([]model.Character{mira})
	if err != nil {
		t.Fatalf("NewCharacterScanner failed: %v", err)
	}

	text := `She looked at <span data-id="` + mira.ID.String() + `">her</span> sister.`
	mentions := sc.Scan(text)
	if len(mentions) != 1 {
		t.Fatalf("Expected 1 mention from data-id markup, got %d: %+v", len(mentions), mentions)
	}
	if mentions[0].CharacterID != mira.ID {
		t.Errorf("Expected character %s, got %s", mira.ID, mentions[0].CharacterID)
	}
}

func TestScanSkipsEmptyAliases(t *testing.T) {
	character := newCharacter("Vera", "", "V")
	sc, err := NewCharacterScanner([]model.Character{character})
	if err != nil {
		t.Fatalf("NewCharacterScanner failed: %v", err)
	}

	mentions := sc.Scan("V waved at Vera.")
	if len(mentions) != 2 {
		t.Fatalf("Expected 2 mentions, got %d: %+v", len(mentions), mentions)
	}
}

func TestNewCharacterScannerEmptyRoster(t *testing.T) {
	if _, err := NewCharacterScanner(nil); err != ErrEmptyRoster {
		t.Errorf("Expected ErrEmptyRoster, got %v", err)
	}
}

func TestSignatureStability(t *testing.T) {
	a := newCharacter("Robert", "Bob")
	b := newCharacter("Mira")

	sig1 := Signature([]model.Character{a, b})
	sig2 := Signature([]model.Character{a, b})
	if sig1 != sig2 {
		t.Error("Signature should be deterministic for the same roster")
	}

	// Adding an alias changes the signature
	c := a
	c.Aliases = append([]string{}, a.Aliases...)
	c.Aliases = append(c.Aliases, "Bobby")
	if Signature([]model.Character{c, b}) == sig1 {
		t.Error("Signature should change when an alias is added")
	}

	// Roster order matters
	if Signature([]model.Character{b, a}) == sig1 {
		t.Error("Signature should depend on roster order")
	}
}

func TestSignatureSeparatesFields(t *testing.T) {
	id := uuid.New()
	anna := model.Character{ID: id, Name: "Anna"}
	ann := model.Character{ID: id, Name: "Ann", Aliases: []string{"a"}}

	// Moving bytes between the name and an alias must not collide
	if Signature([]model.Character{anna}) == Signature([]model.Character{ann}) {
		t.Error("Signature should distinguish name \"Anna\" from name \"Ann\" with alias \"a\"")
	}
}

func TestScanTruncatesLongNameOnRuneBoundary(t *testing.T) {
	// 255 ASCII bytes followed by a two-byte rune straddling the cap
	long := strings.Repeat("a", 255) + "é"
	character := newCharacter(long)

	sc, err := NewCharacterScanner([]model.Character{character})
	if err != nil {
		t.Fatalf("NewCharacterScanner failed: %v", err)
	}

	// The pattern is the valid 255-byte prefix, not a split rune
	mentions := sc.Scan("Enter " + strings.Repeat("a", 255) + ".")
	if len(mentions) != 1 {
		t.Fatalf("Expected 1 mention of the truncated name, got %d: %+v", len(mentions), mentions)
	}
	if mentions[0].Offset != 6 {
		t.Errorf("Expected offset 6, got %d", mentions[0].Offset)
	}
}
