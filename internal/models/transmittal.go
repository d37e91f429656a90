package models

import "time"

// TransmittalNumberSize is the column width of Transmittal.Number.
const TransmittalNumberSize = 50

// Transmittal is a dated, numbered batch of revisions issued together.
// Source partitions the numbering into independent sequences.
type Transmittal struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"project_id"`
	Number    string    `gorm:"size:50;not null;uniqueIndex" json:"number"`
	Source    string    `gorm:"size:30;not null;index" json:"source"`
	DateSent  time.Time `gorm:"type:date;not null;index" json:"date_sent"`
	Notes     string    `gorm:"size:100" json:"notes"`

	Revisions []Revision `gorm:"constraint:OnDelete:CASCADE" json:"revisions,omitempty"`
}
