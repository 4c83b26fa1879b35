package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies exact message content for dedup purposes. It is a
// SHA-256 digest of the message source text rendered as lowercase hex, so
// ledgers written by other implementations of the same scheme stay valid.
type Fingerprint string

// FingerprintText computes the fingerprint of a message source text. For
// templated runs the text is the raw template, before any substitution, so
// every recipient of a run shares one fingerprint.
func FingerprintText(text string) Fingerprint {
	sum := sha256.Sum256([]byte(text))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (f Fingerprint) String() string { return string(f) }

// Short returns a truncated form for log lines.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}
