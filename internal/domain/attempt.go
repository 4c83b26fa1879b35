package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxDetailLen bounds the diagnostic detail stored per attempt.
const MaxDetailLen = 64

// SendingAttempt is one durable record of one transport call's outcome for
// one (fingerprint, recipient) pair. The triple (Fingerprint, Recipient,
// AttemptNumber) is the natural key; attempt numbers count 1-based per pair
// and are never reused, even across process restarts.
type SendingAttempt struct {
	Fingerprint   Fingerprint
	Recipient     string
	AttemptNumber int
	Succeeded     bool
	Detail        string
	CreatedAt     time.Time
}

func (a *SendingAttempt) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: attempt is required", ErrValidation)
	}
	if len(a.Fingerprint) == 0 {
		return fmt.Errorf("%w: fingerprint is required", ErrValidation)
	}
	if strings.TrimSpace(a.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if a.AttemptNumber < 0 {
		return fmt.Errorf("%w: attempt number must not be negative", ErrValidation)
	}
	return nil
}

// TruncateDetail clips a failure reason to the ledger's detail column size.
func TruncateDetail(detail string) string {
	if len(detail) <= MaxDetailLen {
		return detail
	}
	return detail[:MaxDetailLen]
}
