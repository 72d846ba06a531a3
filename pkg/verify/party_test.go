package verify

import "testing"

func TestParsePartyFields(t *testing.T) {
	e := NewExtractor("kain", 240, 100, 300, []string{"warrior", "mage"})
	msg := PartyMessage{
		AuthorID:    "9001",
		Title:       "Character lookup",
		Description: "Class: Kain\nGuild: none",
		Fields: []PartyField{
			{Name: "Level", Value: "Lv. 245"},
			{Name: "IGN", Value: "SomePlayer"},
		},
	}
	c := e.ParseParty(msg)
	if c.Tag != "kain" {
		t.Fatalf("expected tag kain got %q", c.Tag)
	}
	if c.Level == nil || *c.Level != 245 {
		t.Fatalf("expected level 245 got %v", c.Level)
	}
	if c.Name != "SomePlayer" {
		t.Fatalf("expected name SomePlayer got %q", c.Name)
	}
	if c.Source != SourcePartyText {
		t.Fatalf("expected party source got %q", c.Source)
	}

	v := Decide(c, "kain", 240)
	if !v.Passed {
		t.Fatalf("expected pass got %+v", v)
	}
}

func TestParsePartyWrongClassField(t *testing.T) {
	e := NewExtractor("kain", 240, 100, 300, nil)
	msg := PartyMessage{
		Fields: []PartyField{
			{Name: "Job", Value: "Dawn Warrior"},
			{Name: "Level", Value: "250"},
		},
	}
	c := e.ParseParty(msg)
	if c.Tag != "warrior" {
		t.Fatalf("expected wrong class reported as warrior got %q", c.Tag)
	}
	if c.Level == nil || *c.Level != 250 {
		t.Fatalf("expected bare-integer level 250 got %v", c.Level)
	}
	if v := Decide(c, "kain", 240); v.Reason != ReasonWrongTag {
		t.Fatalf("expected WRONG_TAG got %s", v.Reason)
	}
}

func TestParsePartyBlobFallback(t *testing.T) {
	e := NewExtractor("kain", 240, 100, 300, nil)
	msg := PartyMessage{Content: "kain is currently level 245 on channel 3"}
	c := e.ParseParty(msg)
	if c.Tag != "kain" {
		t.Fatalf("expected tag kain got %q", c.Tag)
	}
	if c.Level == nil || *c.Level != 245 {
		t.Fatalf("expected level 245 got %v", c.Level)
	}
}

func TestParsePartyLookalikeLabelIgnored(t *testing.T) {
	e := NewExtractor("kain", 240, 100, 300, nil)
	msg := PartyMessage{
		Fields: []PartyField{
			{Name: "Silver", Value: "250"}, // currency field, not a level
			{Name: "Level", Value: "245"},
		},
	}
	c := e.ParseParty(msg)
	if c.Level == nil || *c.Level != 245 {
		t.Fatalf("expected level 245 from the Level field got %v", c.Level)
	}
}

func TestParsePartyOutOfBoundsLevel(t *testing.T) {
	e := NewExtractor("kain", 240, 100, 300, nil)
	msg := PartyMessage{
		Fields: []PartyField{{Name: "Level", Value: "9999"}},
	}
	c := e.ParseParty(msg)
	if c.Level != nil {
		t.Fatalf("expected no level got %d", *c.Level)
	}
}
