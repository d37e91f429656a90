// Package dbtest provides an in-memory register database and fixtures for tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/drmeng/vds/internal/db"
	"github.com/drmeng/vds/internal/models"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory SQLite database with foreign keys on.
// It is closed when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	gormDB, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close(gormDB) })
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return gormDB
}

// Project inserts a project with the given WA number.
func Project(t testing.TB, gormDB *gorm.DB, waNumber string) *models.Project {
	t.Helper()
	p := models.Project{
		WANumber:     waNumber,
		ClientNumber: "C-" + waNumber,
		DrmRefNumber: "DRM-" + waNumber,
		Title:        "Project " + waNumber,
		Stub:         "P",
		ClientTitle:  "Client " + waNumber,
		Country:      "Nowhere",
	}
	if err := gormDB.Create(&p).Error; err != nil {
		t.Fatalf("create project %s: %v", waNumber, err)
	}
	return &p
}

// Document inserts a document. rev may be empty for a never-issued document.
func Document(t testing.TB, gormDB *gorm.DB, projectID uint, number, rev string) *models.Document {
	t.Helper()
	d := models.Document{
		ProjectID:      projectID,
		Title:          "Document " + number,
		VDSStatus:      "Active",
		DocumentNumber: number,
	}
	if rev != "" {
		d.RevisionNumber = &rev
	}
	if err := gormDB.Create(&d).Error; err != nil {
		t.Fatalf("create document %s: %v", number, err)
	}
	return &d
}

// Transmittal inserts a transmittal directly, bypassing numbering.
func Transmittal(t testing.TB, gormDB *gorm.DB, projectID uint, number, source string, sent time.Time) *models.Transmittal {
	t.Helper()
	tr := models.Transmittal{
		ProjectID: projectID,
		Number:    number,
		Source:    source,
		DateSent:  models.Day(sent),
	}
	if err := gormDB.Create(&tr).Error; err != nil {
		t.Fatalf("create transmittal %s: %v", number, err)
	}
	return &tr
}

// Date is shorthand for a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Clock returns a Now function that always reports the given date.
func Clock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
