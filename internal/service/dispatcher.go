package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ledgermail/ledgermail/internal/compose"
	"github.com/ledgermail/ledgermail/internal/domain"
	"github.com/ledgermail/ledgermail/internal/observability"
	"github.com/ledgermail/ledgermail/internal/provider"
	"github.com/ledgermail/ledgermail/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minConcurrency = 1

// PayloadBuilder constructs a recipient-specific payload. Failures are run
// configuration errors and abort the whole run.
type PayloadBuilder interface {
	Build(r domain.Recipient) (*compose.Payload, error)
}

// Dispatcher drives pending recipients through the transport and records
// every individual outcome in the ledger before moving on. One recipient's
// transport failure never aborts the run; ledger failures and payload
// construction failures do.
type Dispatcher struct {
	ledger      repository.AttemptRepository
	transport   provider.Provider
	builder     PayloadBuilder
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

func NewDispatcher(
	ledger repository.AttemptRepository,
	transport provider.Provider,
	builder PayloadBuilder,
	concurrency int,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport provider is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("payload builder is required")
	}
	if concurrency < minConcurrency {
		concurrency = minConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		ledger:      ledger,
		transport:   transport,
		builder:     builder,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

// Run dispatches to every pending recipient and returns the run summary.
// The transport session is verified before the first recipient; a failure
// there is fatal because no progress is possible. Interrupting the run
// between recipients is safe: recorded attempts stand and unprocessed
// recipients stay pending for the next partition.
func (d *Dispatcher) Run(ctx context.Context, fp domain.Fingerprint, pending []domain.Recipient) (*Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(d.logger, ctx)

	agg := newAggregator()
	if len(pending) == 0 {
		return agg.result(), nil
	}

	if err := d.transport.Verify(ctx); err != nil {
		return nil, fmt.Errorf("transport session unavailable: %w", err)
	}

	if d.concurrency == minConcurrency {
		for _, recipient := range pending {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := d.processRecipient(ctx, logger, fp, recipient, agg); err != nil {
				return nil, err
			}
		}
		return agg.result(), nil
	}

	work := make(chan domain.Recipient)
	g, groupCtx := errgroup.WithContext(ctx)

	for i := 0; i < d.concurrency; i++ {
		g.Go(func() error {
			for recipient := range work {
				if err := d.processRecipient(groupCtx, logger, fp, recipient, agg); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(work)
		for _, recipient := range pending {
			select {
			case work <- recipient:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return agg.result(), nil
}

// processRecipient handles one recipient end to end. A returned error is
// fatal to the run; per-recipient transport failures are absorbed into the
// aggregator instead.
func (d *Dispatcher) processRecipient(
	ctx context.Context,
	logger *zap.Logger,
	fp domain.Fingerprint,
	recipient domain.Recipient,
	agg *aggregator,
) error {
	payload, err := d.builder.Build(recipient)
	if err != nil {
		return fmt.Errorf("building payload for %s: %w", recipient.Address, err)
	}

	outcome, sendErr := d.transport.Send(ctx, payload, recipient.Address)
	succeeded, detail := collapseOutcome(recipient.Address, outcome, sendErr)

	attempt := &domain.SendingAttempt{
		Fingerprint: fp,
		Recipient:   recipient.Address,
		Succeeded:   succeeded,
		Detail:      domain.TruncateDetail(detail),
		CreatedAt:   d.now().UTC(),
	}
	if err := d.ledger.Record(ctx, attempt); err != nil {
		return fmt.Errorf("recording attempt for %s: %w", recipient.Address, err)
	}

	if succeeded {
		agg.recordSuccess()
		logger.Debug("message sent",
			zap.String("recipient", recipient.Address),
			zap.Int("attempt", attempt.AttemptNumber),
		)
		return nil
	}

	agg.recordFailure(recipient.Address, attempt.Detail)
	logger.Warn("send failed",
		zap.String("recipient", recipient.Address),
		zap.Int("attempt", attempt.AttemptNumber),
		zap.String("detail", attempt.Detail),
		zap.Bool("transient", provider.IsTransient(sendErr)),
	)
	return nil
}

// collapseOutcome folds a transport call's result into the primary
// recipient's success flag and diagnostic detail. Rejections of secondary
// addresses (such as the copy-to-self) collapse into the primary's result.
func collapseOutcome(primary string, outcome *provider.Outcome, sendErr error) (bool, string) {
	if sendErr != nil {
		return false, sendErr.Error()
	}
	if outcome.FullSuccess() {
		return true, ""
	}

	if reason, ok := outcome.Rejected[primary]; ok {
		return false, reason
	}

	reasons := make([]string, 0, len(outcome.Rejected))
	for address, reason := range outcome.Rejected {
		reasons = append(reasons, fmt.Sprintf("%s: %s", address, reason))
	}
	sort.Strings(reasons)
	return false, strings.Join(reasons, "; ")
}
