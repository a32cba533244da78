package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createDeliveryAttemptsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_delivery_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
				return err
			}
			indexes := []string{
				// The partial unique index is the hard backstop behind the
				// pre-send idempotency check: at most one DELIVERED row per
				// correlation id, no matter how requests race.
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_deliveries_delivered_correlation ON delivery_attempts (correlation_id) WHERE status = 'DELIVERED'`,
				`CREATE INDEX IF NOT EXISTS idx_deliveries_correlation_id ON delivery_attempts (correlation_id)`,
				`CREATE INDEX IF NOT EXISTS idx_deliveries_status_category_created ON delivery_attempts (status, category, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_deliveries_pending_created ON delivery_attempts (created_at) WHERE status = 'PENDING'`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
		},
	}
}
