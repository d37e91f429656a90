package db

import (
	"fmt"

	"github.com/drmeng/vds/internal/config"
	"github.com/drmeng/vds/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every register model in dependency order (owners first).
func AllModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.Document{},
		&models.Transmittal{},
		&models.Revision{},
	}
}

// AutoMigrate creates or updates all register tables, indexes and foreign keys.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// DropAll drops every register table, dependents first.
func DropAll(db *gorm.DB) error {
	all := AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("db: drop %T: %w", all[i], err)
		}
	}
	return nil
}

// SeedProjects upserts Project rows from configuration, keyed by WA number.
func SeedProjects(db *gorm.DB, projects []config.ProjectConfig) error {
	for _, pc := range projects {
		p := models.Project{
			WANumber:     pc.WANumber,
			Title:        pc.Title,
			ClientNumber: pc.ClientNumber,
			DrmRefNumber: pc.DrmRefNumber,
			Stub:         pc.Stub,
			ClientTitle:  pc.ClientTitle,
			Country:      pc.Country,
		}
		if pc.Location != "" {
			loc := pc.Location
			p.Location = &loc
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wa_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "client_number", "drm_ref_number", "stub", "client_title", "country", "location"}),
		}).Create(&p)
		if result.Error != nil {
			return fmt.Errorf("db: seed project %q: %w", pc.WANumber, result.Error)
		}
	}
	return nil
}
