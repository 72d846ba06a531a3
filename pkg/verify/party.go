package verify

import (
	"regexp"
	"strconv"
	"strings"
)

// PartyField is one labeled field of a third-party bot message.
type PartyField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartyMessage is the structured output a cooperating lookup bot posts about
// an account. Only messages from the configured bot identity are eligible;
// the adapter enforces the author check.
type PartyMessage struct {
	AuthorID    string       `json:"author_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Content     string       `json:"content"`
	Fields      []PartyField `json:"fields"`
}

// Bot output is far less noisy than OCR, so a single indicator-prefixed
// pattern suffices here.
var rePartyLevel = regexp.MustCompile(`(?:level|lvl|lv)[^0-9]{0,3}([0-9]{1,3})`)

// Fixed confidence for the third-party channel; the bot renders machine text.
const partyConfidence = 95.0

// ParseParty extracts the same tag/level candidate shape from a structured
// bot message. Labeled fields are scanned first, then the unstructured text.
func (e *Extractor) ParseParty(msg PartyMessage) Candidate {
	blob := strings.Join([]string{msg.Title, msg.Description, msg.Content}, "\n")
	c := Candidate{RawText: blob, Confidence: partyConfidence, Source: SourcePartyText}

	for _, f := range msg.Fields {
		name := strings.ToLower(f.Name)
		val := collapse(f.Value)
		switch {
		case strings.Contains(name, "job") || strings.Contains(name, "class"):
			if c.Tag == "" {
				c.Tag = e.tagFromValue(val)
			}
		case hasLevelLabel(name):
			if c.Level == nil {
				if n, ok := e.levelFromValue(val); ok {
					c.Level = &n
				}
			}
		case strings.Contains(name, "name") || strings.Contains(name, "ign") || strings.Contains(name, "character"):
			if c.Name == "" {
				c.Name = strings.TrimSpace(f.Value)
			}
		}
	}

	collapsed := collapse(blob)
	if c.Tag == "" {
		if tag, ok := e.findTag(collapsed, project(collapsed)); ok {
			c.Tag = tag
		}
	}
	if c.Level == nil {
		if m := rePartyLevel.FindStringSubmatch(collapsed); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= e.MinLevel && n <= e.MaxLevel {
				c.Level = &n
			}
		}
	}
	return c
}

// hasLevelLabel reports whether a lowercased field label carries a level token.
// Token match, not substring, so labels like "Silver" cannot claim the slot.
func hasLevelLabel(name string) bool {
	for _, tok := range strings.FieldsFunc(name, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	}) {
		if tok == "level" || tok == "lvl" || tok == "lv" {
			return true
		}
	}
	return false
}

// tagFromValue reads a job/class field value: the target tag if it matches
// the pattern family, otherwise the literal value so a wrong class is still
// reported as such.
func (e *Extractor) tagFromValue(val string) string {
	if val == "" {
		return ""
	}
	if e.tagExact.MatchString(val) || e.tagFuzzy.MatchString(val) {
		return e.RequiredTag
	}
	if fields := strings.Fields(val); len(fields) > 0 {
		return fields[len(fields)-1] // "Dawn Warrior" reports as "warrior"
	}
	return ""
}

// levelFromValue reads a level field value: indicator-prefixed or a bare
// integer, bounds-checked either way.
func (e *Extractor) levelFromValue(val string) (int, bool) {
	if m := rePartyLevel.FindStringSubmatch(val); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= e.MinLevel && n <= e.MaxLevel {
			return n, true
		}
	}
	digits := strings.TrimFunc(val, func(r rune) bool { return r < '0' || r > '9' })
	if n, err := strconv.Atoi(digits); err == nil && n >= e.MinLevel && n <= e.MaxLevel {
		return n, true
	}
	return 0, false
}
