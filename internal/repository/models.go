package repository

import (
	"time"

	"github.com/ledgermail/ledgermail/internal/domain"
)

// SendingAttemptModel is the persistence model for the sending_attempts
// table. The composite primary key (fingerprint, recipient, attempt_number)
// enforces the ledger's natural-key uniqueness at the storage layer.
type SendingAttemptModel struct {
	Fingerprint   string `gorm:"type:varchar(64);primaryKey"`
	Recipient     string `gorm:"type:varchar(255);primaryKey"`
	AttemptNumber int    `gorm:"primaryKey;autoIncrement:false"`
	Succeeded     bool   `gorm:"not null"`
	Detail        string `gorm:"type:varchar(64)"`
	CreatedAt     time.Time
}

func (SendingAttemptModel) TableName() string {
	return "sending_attempts"
}

func attemptModelFromDomain(a *domain.SendingAttempt) *SendingAttemptModel {
	if a == nil {
		return nil
	}

	return &SendingAttemptModel{
		Fingerprint:   string(a.Fingerprint),
		Recipient:     a.Recipient,
		AttemptNumber: a.AttemptNumber,
		Succeeded:     a.Succeeded,
		Detail:        a.Detail,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *SendingAttemptModel) *domain.SendingAttempt {
	if m == nil {
		return nil
	}

	return &domain.SendingAttempt{
		Fingerprint:   domain.Fingerprint(m.Fingerprint),
		Recipient:     m.Recipient,
		AttemptNumber: m.AttemptNumber,
		Succeeded:     m.Succeeded,
		Detail:        m.Detail,
		CreatedAt:     m.CreatedAt,
	}
}
