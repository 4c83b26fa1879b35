package provider

import (
	"context"

	"github.com/ledgermail/ledgermail/internal/compose"
)

// Provider is the outbound mail delivery port. One Send call handles one
// logical recipient; any secondary addresses a transport adds (such as the
// blind copy to the sender) are the provider's concern and their outcomes
// collapse into the primary recipient's result.
type Provider interface {
	// Verify checks that a transport session can be established. It runs
	// once before the dispatch loop; a failure here aborts the run, since
	// no progress is possible without a session.
	Verify(ctx context.Context) error

	// Send delivers one payload to one recipient. A non-nil error means
	// the call failed as a whole. A nil error with rejected addresses in
	// the Outcome means the server accepted the call but refused those
	// addresses.
	Send(ctx context.Context, payload *compose.Payload, recipient string) (*Outcome, error)
}

// Outcome reports a transport call's per-address result.
type Outcome struct {
	// Rejected maps refused addresses to the server's reason. Empty on
	// full success.
	Rejected map[string]string
}

func (o *Outcome) FullSuccess() bool {
	return o == nil || len(o.Rejected) == 0
}
