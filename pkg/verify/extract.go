package verify

import (
	"regexp"
	"strconv"
	"strings"
)

// Extractor parses recognized text into a tag and level candidate. It is
// deliberately tolerant: OCR output for game screenshots mangles glyphs, drops
// leading digits and splits numbers, so several independent heuristics each
// contribute integer candidates and the maximum in-bounds value wins. False
// lows are worse than occasional overestimation because the tag check remains
// the primary gate.
type Extractor struct {
	RequiredTag   string
	RequiredLevel int
	MinLevel      int
	MaxLevel      int
	KnownTags     []string

	tagExact   *regexp.Regexp
	tagFuzzy   *regexp.Regexp
	tagProj    *regexp.Regexp
	knownRes   []*regexp.Regexp
	knownNames []string
}

// Per-glyph look-alike classes seen in practice. "rn" for "m" and the 1/l/i
// family are the frequent ones on aliased game fonts.
var confusions = map[rune]string{
	'a': "[a4@]",
	'b': "[b8]",
	'c': "[c(]",
	'e': "[e3]",
	'g': "[g9]",
	'i': "[i1l|!j]",
	'l': "[l1i|]",
	'm': "(?:m|rn)",
	'o': "[o0]",
	's': "[s5$]",
	't': "[t7]",
	'u': "[uv]",
	'z': "[z2]",
}

var (
	reIndicator     = regexp.MustCompile(`(?:level|lvl|lv)[^0-9]{0,3}([0-9]{2,3})`)
	reIndicatorProj = regexp.MustCompile(`(?:level|lvl|lv)([0-9]{2,3})`)
	reFreeStanding  = regexp.MustCompile(`(?:^|[^0-9])([1-9][0-9]{1,2})(?:[^0-9]|$)`)
	reStitched      = regexp.MustCompile(`(?:^|[^0-9])([1-9])[^0-9a-z]{1,2}([0-9])[^0-9a-z]{1,2}([0-9])(?:[^0-9]|$)`)
)

// NewExtractor compiles the tag pattern family for the configured target tag.
func NewExtractor(requiredTag string, requiredLevel, minLevel, maxLevel int, knownTags []string) *Extractor {
	e := &Extractor{
		RequiredTag:   strings.ToLower(strings.TrimSpace(requiredTag)),
		RequiredLevel: requiredLevel,
		MinLevel:      minLevel,
		MaxLevel:      maxLevel,
		KnownTags:     knownTags,
	}
	lit := regexp.QuoteMeta(e.RequiredTag)
	e.tagExact = regexp.MustCompile(`(?:^|[^a-z0-9])` + lit + `(?:$|[^a-z0-9])`)
	e.tagFuzzy = regexp.MustCompile(`(?:^|[^a-z0-9])` + fuzzyPattern(e.RequiredTag) + `(?:$|[^a-z0-9])`)
	// The projection has no separators left, so only letter neighbors disqualify.
	e.tagProj = regexp.MustCompile(`(?:^|[^a-z])` + lit + `(?:$|[^a-z])`)
	for _, kt := range knownTags {
		kt = strings.ToLower(strings.TrimSpace(kt))
		if kt == "" || kt == e.RequiredTag {
			continue
		}
		e.knownNames = append(e.knownNames, kt)
		e.knownRes = append(e.knownRes, regexp.MustCompile(`(?:^|[^a-z0-9])`+regexp.QuoteMeta(kt)+`(?:$|[^a-z0-9])`))
	}
	return e
}

// fuzzyPattern substitutes each rune of the tag with its OCR confusion class.
func fuzzyPattern(tag string) string {
	var b strings.Builder
	for _, r := range tag {
		if cls, ok := confusions[r]; ok {
			b.WriteString(cls)
		} else {
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// Extract parses a recognized text blob into a candidate. It is pure: the same
// text always yields the same candidate.
func (e *Extractor) Extract(text string) Candidate {
	collapsed := collapse(text)
	proj := project(collapsed)
	c := Candidate{RawText: text, Source: SourceImageOCR}
	if tag, ok := e.findTag(collapsed, proj); ok {
		c.Tag = tag
	}
	if lvl, ok := e.findLevel(collapsed, proj); ok {
		c.Level = &lvl
	}
	return c
}

// findTag tests the ordered pattern list; first match wins. Partial matches
// inside longer words do not count. When the target tag is absent, a lexicon
// of known alternative tags is scanned so a wrong tag can still be reported.
func (e *Extractor) findTag(collapsed, proj string) (string, bool) {
	if e.tagExact.MatchString(collapsed) || e.tagFuzzy.MatchString(collapsed) || e.tagProj.MatchString(proj) {
		return e.RequiredTag, true
	}
	for i, re := range e.knownRes {
		if re.MatchString(collapsed) {
			return e.knownNames[i], true
		}
	}
	return "", false
}

// findLevel unions all heuristic candidates and returns the maximum within
// the plausible bounds. No survivor means level absent, never zero.
func (e *Extractor) findLevel(collapsed, proj string) (int, bool) {
	var cands []int
	cands = append(cands, e.indicatorLevels(collapsed, reIndicator)...)
	cands = append(cands, e.indicatorLevels(proj, reIndicatorProj)...)
	cands = append(cands, e.freeStandingLevels(collapsed)...)
	cands = append(cands, e.stitchedLevels(collapsed)...)
	best, found := 0, false
	for _, n := range cands {
		if n < e.MinLevel || n > e.MaxLevel {
			continue
		}
		if n > best {
			best = n
			found = true
		}
	}
	return best, found
}

// indicatorLevels finds numbers behind a level marker, tolerating a few
// intervening non-digit characters that OCR likes to insert. A 2-digit
// reading is promoted by prefixing the threshold's leading digit, but only
// when the promoted value lands in the threshold zone. This compensates for
// recognition dropping the leading digit, nothing broader.
func (e *Extractor) indicatorLevels(text string, re *regexp.Regexp) []int {
	var out []int
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if len(m[1]) == 3 {
			out = append(out, n)
			continue
		}
		promoted := (e.RequiredLevel/100)*100 + n
		if promoted >= e.RequiredLevel && promoted <= e.MaxLevel {
			out = append(out, promoted)
		}
	}
	return out
}

// freeStandingLevels collects any isolated 2-3 digit number as a low-precision
// fallback; the bounds filter in findLevel does the real gating.
func (e *Extractor) freeStandingLevels(text string) []int {
	var out []int
	for _, m := range reFreeStanding.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// stitchedLevels reassembles single digits that recognition split apart
// ("2 6 4" for one glyph cluster). Only values at the top of the plausible
// range (at or above the threshold) are trusted; anything lower is far more
// likely to be noise than a split reading.
func (e *Extractor) stitchedLevels(text string) []int {
	var out []int
	for _, m := range reStitched.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1] + m[2] + m[3])
		if err != nil {
			continue
		}
		if n >= e.RequiredLevel {
			out = append(out, n)
		}
	}
	return out
}

// collapse lowercases and whitespace-collapses a text blob.
func collapse(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// project strips everything but letters and digits, recovering tokens that
// OCR peppered with separators.
func project(text string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, text)
}
