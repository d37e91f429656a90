// Package document manages the documents of a project register.
package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/drmeng/vds/internal/label"
	"github.com/drmeng/vds/internal/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// StatusActive is the default VDS status of a new document.
const StatusActive = "Active"

// CreateOpts holds parameters for adding a document to a project.
type CreateOpts struct {
	ProjectID      uint
	Title          string
	DocumentNumber string
	ClientNumber   string // optional; unique when set
	SupplierNumber string // optional; unique when set
	RevisionNumber string // optional; label carried over from another register
	VDSStatus      string
	Stub           string
	Discipline     string
	RequiredBy     *time.Time
	NextDue        *time.Time
	Notes          string
	Penalty        bool
	Milestone      bool
	Priority       bool
}

// Validate checks required fields and the column limits of the document table.
func (o CreateOpts) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.ProjectID, validation.Required),
		validation.Field(&o.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&o.DocumentNumber, validation.Required, validation.Length(1, 100)),
		validation.Field(&o.ClientNumber, validation.Length(0, 255)),
		validation.Field(&o.SupplierNumber, validation.Length(0, 255)),
		validation.Field(&o.RevisionNumber, validation.Length(0, 10)),
		validation.Field(&o.VDSStatus, validation.Length(0, 15)),
		validation.Field(&o.Stub, validation.Length(0, 100)),
		validation.Field(&o.Discipline, validation.Length(0, 100)),
		validation.Field(&o.Notes, validation.Length(0, 255)),
	)
}

// Create adds a document to an existing project. Empty client and supplier
// numbers are stored as NULL so they never collide with each other.
func Create(db *gorm.DB, opts CreateOpts) (*models.Document, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("document: %w: %w", models.ErrInvalid, err)
	}
	if opts.VDSStatus == "" {
		opts.VDSStatus = StatusActive
	}

	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", opts.ProjectID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("document: check project %d: %w", opts.ProjectID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("document: project %d: %w", opts.ProjectID, models.ErrNotFound)
	}

	d := models.Document{
		ProjectID:      opts.ProjectID,
		Title:          opts.Title,
		VDSStatus:      opts.VDSStatus,
		Stub:           opts.Stub,
		Discipline:     opts.Discipline,
		DocumentNumber: opts.DocumentNumber,
		ClientNumber:   optional(opts.ClientNumber),
		SupplierNumber: optional(opts.SupplierNumber),
		RevisionNumber: optional(opts.RevisionNumber),
		RequiredBy:     day(opts.RequiredBy),
		NextDue:        day(opts.NextDue),
		Notes:          opts.Notes,
		Penalty:        opts.Penalty,
		Milestone:      opts.Milestone,
		Priority:       opts.Priority,
	}

	if err := db.Create(&d).Error; err != nil {
		return nil, fmt.Errorf("document: create %s: %w", opts.DocumentNumber, models.Classify(err))
	}
	return &d, nil
}

// Get retrieves a document by ID.
func Get(db *gorm.DB, id uint) (*models.Document, error) {
	var d models.Document
	if err := db.Where("id = ?", id).Take(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document: %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("document: get %d: %w", id, err)
	}
	return &d, nil
}

// List returns the documents of a project ordered by document number. The
// revision fields are the cached summary; no revision history is consulted.
func List(db *gorm.DB, projectID uint) ([]models.Document, error) {
	var docs []models.Document
	if err := db.Where("project_id = ?", projectID).Order("document_number ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("document: list project %d: %w", projectID, err)
	}
	return docs, nil
}

// Delete removes the given documents of a project, together with their
// revisions. IDs belonging to other projects are ignored. It returns the
// number of documents removed.
func Delete(db *gorm.DB, projectID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.Where("project_id = ? AND id IN ?", projectID, ids).Delete(&models.Document{})
	if result.Error != nil {
		return 0, fmt.Errorf("document: delete from project %d: %w", projectID, result.Error)
	}
	return result.RowsAffected, nil
}

// NextRevision returns the label the document would receive on its next
// issue. It reads only the cached revision number.
func NextRevision(d *models.Document) string {
	return label.NextRevision(d.CurrentRevision())
}

// Numbers maps the given document IDs to their document numbers. Unknown IDs
// are absent from the result.
func Numbers(db *gorm.DB, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var docs []models.Document
	if err := db.Select("id", "document_number").Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("document: numbers: %w", err)
	}
	for _, d := range docs {
		out[d.ID] = d.DocumentNumber
	}
	return out, nil
}

// Overdue returns active documents whose next due date is before today,
// oldest first.
func Overdue(db *gorm.DB, today time.Time) ([]models.Document, error) {
	var docs []models.Document
	if err := db.Where("vds_status = ? AND next_due IS NOT NULL AND next_due < ?", StatusActive, models.Day(today)).
		Order("next_due ASC, document_number ASC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("document: overdue: %w", err)
	}
	return docs, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func day(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.Day(*t)
	return &d
}
