package verify

import (
	"reflect"
	"testing"
)

func testExtractor() *Extractor {
	return NewExtractor("kain", 260, 100, 300, []string{"warrior", "mage", "bowman"})
}

func TestExtractTagAndLevel(t *testing.T) {
	e := testExtractor()
	c := e.Extract("lv.264 kain")
	if c.Tag != "kain" {
		t.Fatalf("expected tag kain got %q", c.Tag)
	}
	if c.Level == nil || *c.Level != 264 {
		t.Fatalf("expected level 264 got %v", c.Level)
	}
}

func TestExtractLowLevel(t *testing.T) {
	e := testExtractor()
	c := e.Extract("level 180 kain")
	if c.Tag != "kain" {
		t.Fatalf("expected tag kain got %q", c.Tag)
	}
	if c.Level == nil || *c.Level != 180 {
		t.Fatalf("expected level 180 got %v", c.Level)
	}
}

func TestExtractWrongTag(t *testing.T) {
	e := testExtractor()
	c := e.Extract("lv 260 warrior")
	if c.Tag != "warrior" {
		t.Fatalf("expected tag warrior got %q", c.Tag)
	}
	if c.Level == nil || *c.Level != 260 {
		t.Fatalf("expected level 260 got %v", c.Level)
	}
}

func TestExtractEmptyText(t *testing.T) {
	e := testExtractor()
	c := e.Extract("")
	if c.Tag != "" || c.Level != nil {
		t.Fatalf("expected empty candidate got tag=%q level=%v", c.Tag, c.Level)
	}
}

func TestTagOCRMisreads(t *testing.T) {
	e := testExtractor()
	for _, text := range []string{"ka1n lv 264", "kaln lv 264", "ka!n lv 264", "k4in lv 264"} {
		c := e.Extract(text)
		if c.Tag != "kain" {
			t.Fatalf("expected misread %q to match kain, got %q", text, c.Tag)
		}
	}
	// clearly different words must not match
	for _, text := range []string{"rain lv 264", "kainite lv 264", "akains lv 264"} {
		c := e.Extract(text)
		if c.Tag == "kain" {
			t.Fatalf("expected %q not to match kain", text)
		}
	}
}

func TestLevelBounds(t *testing.T) {
	e := testExtractor()
	for _, text := range []string{"lv 999 kain", "lv 99999 kain", "kain 12"} {
		c := e.Extract(text)
		if c.Level != nil {
			t.Fatalf("expected no level for %q got %d", text, *c.Level)
		}
	}
}

func TestTwoDigitPromotion(t *testing.T) {
	e := testExtractor()
	// truncated leading digit: "64" in the threshold zone reads as 264
	c := e.Extract("kain lv 64")
	if c.Level == nil || *c.Level != 264 {
		t.Fatalf("expected promoted level 264 got %v", c.Level)
	}
	// "50" would promote to 250, below the threshold zone: rejected
	c = e.Extract("kain lv 50")
	if c.Level != nil {
		t.Fatalf("expected no level for sub-threshold promotion got %d", *c.Level)
	}
}

func TestStitchedDigits(t *testing.T) {
	e := testExtractor()
	c := e.Extract("kain 2 6 4")
	if c.Level == nil || *c.Level != 264 {
		t.Fatalf("expected stitched level 264 got %v", c.Level)
	}
	// below the threshold the stitcher must not trust the reading
	c = e.Extract("kain 1 5 0")
	if c.Level != nil {
		t.Fatalf("expected no stitched level got %d", *c.Level)
	}
}

func TestFreeStandingFollowsConfiguredBounds(t *testing.T) {
	// a lowered floor admits 2-digit free-standing readings
	low := NewExtractor("kain", 70, 50, 300, nil)
	c := low.Extract("kain 75")
	if c.Level == nil || *c.Level != 75 {
		t.Fatalf("expected level 75 with floor 50 got %v", c.Level)
	}
	// the default floor still rejects the same reading
	c = testExtractor().Extract("kain 75")
	if c.Level != nil {
		t.Fatalf("expected no level with floor 100 got %d", *c.Level)
	}
}

func TestMaxAcrossHeuristics(t *testing.T) {
	e := testExtractor()
	// duplicate noisy readings from merged variants: the max in bounds wins
	c := e.Extract("lv 180 kain\nlv.264 kain\n264")
	if c.Level == nil || *c.Level != 264 {
		t.Fatalf("expected 264 got %v", c.Level)
	}
}

func TestExtractIdempotent(t *testing.T) {
	e := testExtractor()
	text := "lv.264 kain something 180"
	a := e.Extract(text)
	b := e.Extract(text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("extraction not idempotent: %+v vs %+v", a, b)
	}
}
