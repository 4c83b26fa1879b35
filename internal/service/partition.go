package service

import (
	"context"

	"github.com/ledgermail/ledgermail/internal/domain"
	"github.com/ledgermail/ledgermail/internal/repository"
)

// Partition splits candidate recipients into already-satisfied and
// still-pending sets by consulting the ledger. Duplicate addresses collapse
// to their first occurrence; pending keeps input order. The split is
// advisory: a concurrent run against the same ledger may satisfy a pending
// recipient between partition and dispatch, which the dispatcher tolerates.
func Partition(
	ctx context.Context,
	ledger repository.AttemptRepository,
	fp domain.Fingerprint,
	candidates []domain.Recipient,
) (satisfied, pending []domain.Recipient, err error) {
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		if _, ok := seen[candidate.Address]; ok {
			continue
		}
		seen[candidate.Address] = struct{}{}

		delivered, err := ledger.HasSucceeded(ctx, fp, candidate.Address)
		if err != nil {
			return nil, nil, err
		}

		if delivered {
			satisfied = append(satisfied, candidate)
		} else {
			pending = append(pending, candidate)
		}
	}

	return satisfied, pending, nil
}
