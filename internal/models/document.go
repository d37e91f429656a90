package models

import "time"

// Document is a controlled document within a project.
//
// RevisionNumber and LatestIssue mirror the most recently issued Revision.
// They are written only by revision issuance, in the same transaction as the
// Revision insert.
type Document struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID      uint       `gorm:"not null;index" json:"project_id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	VDSStatus      string     `gorm:"column:vds_status;size:15;default:Active" json:"vds_status"`
	Stub           string     `gorm:"size:100" json:"stub"`
	Discipline     string     `gorm:"size:100" json:"discipline"`
	DocumentNumber string     `gorm:"size:100;not null;uniqueIndex" json:"document_number"`
	ClientNumber   *string    `gorm:"size:255;uniqueIndex" json:"client_number"`
	SupplierNumber *string    `gorm:"size:255;uniqueIndex" json:"supplier_number"`
	RevisionNumber *string    `gorm:"size:10" json:"revision_number"`
	RequiredBy     *time.Time `gorm:"type:date" json:"required_by"`
	FirstIssue     *time.Time `gorm:"type:date" json:"first_issue"`
	LatestIssue    *time.Time `gorm:"type:date" json:"latest_issue"`
	NextDue        *time.Time `gorm:"type:date;index" json:"next_due"`
	Notes          string     `gorm:"size:255" json:"notes"`
	Penalty        bool       `gorm:"default:false" json:"penalty"`
	Milestone      bool       `gorm:"default:false" json:"milestone"`
	Priority       bool       `gorm:"default:false" json:"priority"`

	Revisions []Revision `gorm:"constraint:OnDelete:CASCADE" json:"revisions,omitempty"`
}

// CurrentRevision returns the cached revision label, or "" when the document
// has never been issued.
func (d *Document) CurrentRevision() string {
	if d.RevisionNumber == nil {
		return ""
	}
	return *d.RevisionNumber
}
