package domain

import (
	"fmt"
	"strings"
)

// Recipient is one logical delivery target of a run. The address is treated
// as an opaque key; no syntax parsing or normalization happens here. Fields
// carries per-recipient template data for templated runs, and Attachment
// optionally names a per-recipient attachment file.
type Recipient struct {
	Address    string
	Fields     map[string]string
	Attachment string
}

func (r Recipient) Validate() error {
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("%w: recipient address is required", ErrValidation)
	}
	return nil
}
