package models

// Project is a unit of engineering work. It owns its documents and
// transmittals; deleting a project removes both.
type Project struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	WANumber     string  `gorm:"column:wa_number;size:20;not null;uniqueIndex" json:"wa_number"`
	ClientNumber string  `gorm:"size:50" json:"client_number"`
	DrmRefNumber string  `gorm:"size:20" json:"drm_ref_number"`
	Title        string  `gorm:"size:100;not null" json:"title"`
	Stub         string  `gorm:"size:10" json:"stub"`
	ClientTitle  string  `gorm:"size:100" json:"client_title"`
	Country      string  `gorm:"size:200" json:"country"`
	Location     *string `gorm:"size:100" json:"location"`

	Documents    []Document    `gorm:"constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	Transmittals []Transmittal `gorm:"constraint:OnDelete:CASCADE" json:"transmittals,omitempty"`
}
