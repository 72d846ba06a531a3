package verify

import (
	"fmt"
	"strings"
)

// Reason is the canonical cause attached to every verdict. Exactly one
// applies, chosen by fixed precedence.
type Reason string

const (
	ReasonNoTag    Reason = "NO_TAG"
	ReasonWrongTag Reason = "WRONG_TAG"
	ReasonNoLevel  Reason = "NO_LEVEL"
	ReasonLowLevel Reason = "LOW_LEVEL"
	ReasonOK       Reason = "OK"
)

// Verdict is the final pass/fail decision. Reason == ReasonOK iff Passed.
type Verdict struct {
	Passed    bool      `json:"passed"`
	Reason    Reason    `json:"reason"`
	Message   string    `json:"message"`
	Candidate Candidate `json:"candidate"`
}

// Decide applies the precedence rules to a candidate. It is total: every
// combination of present/absent fields falls into exactly one branch, and the
// ordering is a contract (wrong tag plus missing level reports WRONG_TAG).
func Decide(c Candidate, requiredTag string, requiredLevel int) Verdict {
	requiredTag = strings.ToLower(strings.TrimSpace(requiredTag))
	switch {
	case c.Tag == "":
		return Verdict{Reason: ReasonNoTag, Message: "no class name detected", Candidate: c}
	case !strings.EqualFold(c.Tag, requiredTag):
		return Verdict{Reason: ReasonWrongTag, Message: fmt.Sprintf("detected class %q, expected %q", c.Tag, requiredTag), Candidate: c}
	case c.Level == nil:
		return Verdict{Reason: ReasonNoLevel, Message: "no level detected", Candidate: c}
	case *c.Level < requiredLevel:
		return Verdict{Reason: ReasonLowLevel, Message: fmt.Sprintf("level %d is below required %d", *c.Level, requiredLevel), Candidate: c}
	default:
		return Verdict{Passed: true, Reason: ReasonOK, Message: fmt.Sprintf("verified %s at level %d", requiredTag, *c.Level), Candidate: c}
	}
}
