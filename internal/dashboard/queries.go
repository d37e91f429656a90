package dashboard

import (
	"fmt"
	"time"

	"github.com/drmeng/vds/internal/document"
	"github.com/drmeng/vds/internal/models"
	"gorm.io/gorm"
)

// ProjectSummary holds register counts for a single project.
type ProjectSummary struct {
	Documents    int64 `json:"documents"`
	Issued       int64 `json:"issued"`
	NeverIssued  int64 `json:"never_issued"`
	Overdue      int64 `json:"overdue"`
	Transmittals int64 `json:"transmittals"`
	Revisions    int64 `json:"revisions"`
}

// Summarize counts a project's documents, transmittals and revisions.
func Summarize(db *gorm.DB, projectID uint, today time.Time) (*ProjectSummary, error) {
	var s ProjectSummary
	docs := func() *gorm.DB { return db.Model(&models.Document{}).Where("project_id = ?", projectID) }

	if err := docs().Count(&s.Documents).Error; err != nil {
		return nil, fmt.Errorf("dashboard: count documents: %w", err)
	}
	if err := docs().Where("revision_number IS NOT NULL").Count(&s.Issued).Error; err != nil {
		return nil, fmt.Errorf("dashboard: count issued: %w", err)
	}
	s.NeverIssued = s.Documents - s.Issued
	if err := docs().Where("vds_status = ? AND next_due IS NOT NULL AND next_due < ?",
		document.StatusActive, models.Day(today)).Count(&s.Overdue).Error; err != nil {
		return nil, fmt.Errorf("dashboard: count overdue: %w", err)
	}
	if err := db.Model(&models.Transmittal{}).Where("project_id = ?", projectID).
		Count(&s.Transmittals).Error; err != nil {
		return nil, fmt.Errorf("dashboard: count transmittals: %w", err)
	}
	if err := db.Model(&models.Revision{}).
		Joins("JOIN transmittals ON transmittals.id = revisions.transmittal_id").
		Where("transmittals.project_id = ?", projectID).
		Count(&s.Revisions).Error; err != nil {
		return nil, fmt.Errorf("dashboard: count revisions: %w", err)
	}
	return &s, nil
}

// DocumentRow is a document with the label its next issue would receive.
type DocumentRow struct {
	models.Document
	NextRevision string `json:"next_revision"`
}

// DocumentRows lists a project's documents for display.
func DocumentRows(db *gorm.DB, projectID uint) ([]DocumentRow, error) {
	docs, err := document.List(db, projectID)
	if err != nil {
		return nil, err
	}
	rows := make([]DocumentRow, len(docs))
	for i := range docs {
		rows[i] = DocumentRow{Document: docs[i], NextRevision: document.NextRevision(&docs[i])}
	}
	return rows, nil
}
