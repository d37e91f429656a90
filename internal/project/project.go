// Package project provides project registration and lookup.
package project

import (
	"errors"
	"fmt"

	"github.com/drmeng/vds/internal/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for registering a project.
type CreateOpts struct {
	WANumber     string
	Title        string
	ClientNumber string
	DrmRefNumber string
	Stub         string
	ClientTitle  string
	Country      string
	Location     string
}

// Validate checks the field limits of the project table.
func (o CreateOpts) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.WANumber, validation.Required, validation.Length(1, 20)),
		validation.Field(&o.Title, validation.Required, validation.Length(1, 100)),
		validation.Field(&o.ClientNumber, validation.Length(0, 50)),
		validation.Field(&o.DrmRefNumber, validation.Length(0, 20)),
		validation.Field(&o.Stub, validation.Length(0, 10)),
		validation.Field(&o.ClientTitle, validation.Length(0, 100)),
		validation.Field(&o.Country, validation.Length(0, 200)),
		validation.Field(&o.Location, validation.Length(0, 100)),
	)
}

// Create registers a new project. A duplicate WA number is a conflict.
func Create(db *gorm.DB, opts CreateOpts) (*models.Project, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("project: %w: %w", models.ErrInvalid, err)
	}

	p := models.Project{
		WANumber:     opts.WANumber,
		Title:        opts.Title,
		ClientNumber: opts.ClientNumber,
		DrmRefNumber: opts.DrmRefNumber,
		Stub:         opts.Stub,
		ClientTitle:  opts.ClientTitle,
		Country:      opts.Country,
	}
	if opts.Location != "" {
		p.Location = &opts.Location
	}

	if err := db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("project: create %s: %w", opts.WANumber, models.Classify(err))
	}
	return &p, nil
}

// Get retrieves a project by ID.
func Get(db *gorm.DB, id uint) (*models.Project, error) {
	var p models.Project
	if err := db.Where("id = ?", id).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("project: get %d: %w", id, err)
	}
	return &p, nil
}

// GetByWANumber retrieves a project by its business identifier.
func GetByWANumber(db *gorm.DB, waNumber string) (*models.Project, error) {
	var p models.Project
	if err := db.Where("wa_number = ?", waNumber).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %s: %w", waNumber, models.ErrNotFound)
		}
		return nil, fmt.Errorf("project: get %s: %w", waNumber, err)
	}
	return &p, nil
}

// List returns projects with the highest WA number first. A limit of zero or
// less returns all of them.
func List(db *gorm.DB, limit int) ([]models.Project, error) {
	q := db.Order("wa_number DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}
	return projects, nil
}
