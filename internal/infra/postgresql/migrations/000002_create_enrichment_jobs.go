package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createEnrichmentJobsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_enrichment_jobs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.EnrichmentJobModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_enrichment_jobs_status_created ON enrichment_jobs (status, created_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.EnrichmentJobModel{})
		},
	}
}
