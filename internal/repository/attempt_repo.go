package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgermail/ledgermail/internal/domain"
	"gorm.io/gorm"
)

// recordRetries bounds re-runs of the count-then-insert transaction when a
// concurrent writer wins the same attempt number first.
const recordRetries = 3

// AttemptRepository is the delivery ledger: a durable, append-only record of
// every send attempt per (fingerprint, recipient) pair.
type AttemptRepository interface {
	// CountAttempts returns the number of attempts recorded for the pair,
	// 0 for an unknown pair.
	CountAttempts(ctx context.Context, fp domain.Fingerprint, recipient string) (int, error)
	// HasSucceeded reports whether at least one recorded attempt for the
	// pair succeeded. Later failed attempts never revoke that status.
	HasSucceeded(ctx context.Context, fp domain.Fingerprint, recipient string) (bool, error)
	// Record appends exactly one attempt with AttemptNumber assigned as
	// count of prior attempts for the pair + 1. The assignment is atomic
	// per pair; calls for distinct pairs may run concurrently.
	Record(ctx context.Context, a *domain.SendingAttempt) error
	// ListAttempts returns the pair's attempts in attempt-number order.
	ListAttempts(ctx context.Context, fp domain.Fingerprint, recipient string) ([]domain.SendingAttempt, error)
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) CountAttempts(ctx context.Context, fp domain.Fingerprint, recipient string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SendingAttemptModel{}).
		Where("fingerprint = ? AND recipient = ?", string(fp), recipient).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: counting attempts: %v", domain.ErrLedgerUnavailable, err)
	}
	return int(count), nil
}

func (r *GormAttemptRepo) HasSucceeded(ctx context.Context, fp domain.Fingerprint, recipient string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SendingAttemptModel{}).
		Where("fingerprint = ? AND recipient = ? AND succeeded = ?", string(fp), recipient, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: querying delivery status: %v", domain.ErrLedgerUnavailable, err)
	}
	return count > 0, nil
}

func (r *GormAttemptRepo) Record(ctx context.Context, a *domain.SendingAttempt) error {
	if err := a.Validate(); err != nil {
		return err
	}

	var lastErr error
	for range recordRetries {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			err := tx.Model(&SendingAttemptModel{}).
				Where("fingerprint = ? AND recipient = ?", string(a.Fingerprint), a.Recipient).
				Count(&count).Error
			if err != nil {
				return err
			}

			model := attemptModelFromDomain(a)
			model.Detail = domain.TruncateDetail(model.Detail)
			model.AttemptNumber = int(count) + 1
			if err := tx.Create(model).Error; err != nil {
				return err
			}

			*a = *attemptModelToDomain(model)
			return nil
		})
		if err == nil {
			return nil
		}
		// A concurrent Record for the same pair took the number first;
		// the primary key rejects the duplicate and we recount.
		if isUniqueViolationError(err) {
			lastErr = err
			continue
		}
		return fmt.Errorf("%w: recording attempt: %v", domain.ErrLedgerUnavailable, err)
	}

	return fmt.Errorf("%w: attempt number contention for %s: %v", domain.ErrLedgerUnavailable, a.Recipient, lastErr)
}

func (r *GormAttemptRepo) ListAttempts(ctx context.Context, fp domain.Fingerprint, recipient string) ([]domain.SendingAttempt, error) {
	var models []SendingAttemptModel
	err := r.db.WithContext(ctx).
		Where("fingerprint = ? AND recipient = ?", string(fp), recipient).
		Order("attempt_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing attempts: %v", domain.ErrLedgerUnavailable, err)
	}

	attempts := make([]domain.SendingAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
