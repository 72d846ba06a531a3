package verify

// SourceMethod records which evidence channel produced a candidate.
type SourceMethod string

const (
	SourceImageOCR  SourceMethod = "IMAGE_OCR"
	SourcePartyText SourceMethod = "THIRD_PARTY_TEXT"
)

// Candidate is an extracted, not-yet-judged claim. It is created fresh per
// attempt and never mutated after the decision.
type Candidate struct {
	Tag        string       `json:"tag,omitempty"`   // empty = not detected
	Level      *int         `json:"level,omitempty"` // nil = not detected, never zero
	Name       string       `json:"name,omitempty"`  // character name, party evidence only
	RawText    string       `json:"-"`
	Confidence float64      `json:"confidence"` // [0,100]
	Source     SourceMethod `json:"source"`
}
