package models

import "time"

// RevisionLabelSize is the column width of revision labels on Revision and
// Document.
const RevisionLabelSize = 10

// Revision records one document as issued in one transmittal.
// A document carries each label at most once and appears at most once per
// transmittal.
type Revision struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransmittalID  uint      `gorm:"not null;uniqueIndex:idx_revision_transmittal_document" json:"transmittal_id"`
	DocumentID     uint      `gorm:"not null;uniqueIndex:idx_revision_transmittal_document;uniqueIndex:idx_revision_document_label" json:"document_id"`
	RevisionNumber string    `gorm:"size:10;not null;uniqueIndex:idx_revision_document_label" json:"revision_number"`
	Date           time.Time `gorm:"type:date;not null;index" json:"date"`
	Purpose        string    `gorm:"size:50" json:"purpose"`
	PreparedBy     *string   `gorm:"size:10" json:"prepared_by"`
	ReviewedBy     *string   `gorm:"size:10" json:"reviewed_by"`
	ApprovedBy     *string   `gorm:"size:10" json:"approved_by"`
	Notes          string    `gorm:"size:50" json:"notes"`
}
