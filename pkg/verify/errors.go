package verify

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyVerified means the actor already holds a verification; the gate
// rejects before any processing work.
var ErrAlreadyVerified = errors.New("already verified")

// CooldownError is a gate rejection within the cooldown window. It is an
// expected outcome, not a processing failure.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown, retry in %s", e.RetryAfter.Round(time.Second))
}
