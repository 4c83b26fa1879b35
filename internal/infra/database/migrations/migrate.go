package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/ledgermail/ledgermail/internal/repository"
	"gorm.io/gorm"
)

// Migrate ensures the ledger schema exists. It is idempotent and runs at
// every startup; applied migrations are skipped.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createSendingAttemptsTable(),
	})

	return m.Migrate()
}

func createSendingAttemptsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_sending_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SendingAttemptModel{}); err != nil {
				return err
			}
			// The composite primary key already guards the natural key;
			// this index serves the per-pair count and status lookups.
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_sending_attempts_pair ON sending_attempts (fingerprint, recipient)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SendingAttemptModel{})
		},
	}
}
