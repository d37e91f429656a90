// Package transmittal numbers, records and removes transmittals.
package transmittal

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/drmeng/vds/internal/label"
	"github.com/drmeng/vds/internal/logging"
	"github.com/drmeng/vds/internal/metrics"
	"github.com/drmeng/vds/internal/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

// DefaultSource is used when neither the caller nor the project history
// names a numbering source.
const DefaultSource = "HOUSE"

// DefaultRecent is the number of transmittals Recent returns for a
// non-positive limit.
const DefaultRecent = 10

// CreateOpts holds parameters for creating a transmittal.
type CreateOpts struct {
	ProjectID uint
	Source    string // empty adopts the project's earliest source
	Notes     string
	Now       func() time.Time // defaults to time.Now
	Logger    hclog.Logger
}

// Validate checks the column limits of the transmittal table.
func (o CreateOpts) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.ProjectID, validation.Required),
		validation.Field(&o.Source, validation.Length(0, 30)),
		validation.Field(&o.Notes, validation.Length(0, 100)),
	)
}

// Line is one revision of a transmittal together with its document.
type Line struct {
	models.Revision
	DocumentNumber string `json:"document_number"`
	DocumentTitle  string `json:"document_title"`
}

// Details is a transmittal with its revisions in document order.
type Details struct {
	Transmittal models.Transmittal `json:"transmittal"`
	Lines       []Line             `json:"lines"`
}

// Create derives the next number in the source's sequence and records a new
// transmittal dated today. Two callers deriving the same number concurrently
// both reach the insert; the loser fails with models.ErrConflict.
func Create(db *gorm.DB, opts CreateOpts) (*models.Transmittal, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("transmittal: %w: %w", models.ErrInvalid, err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	log := logging.OrNull(opts.Logger)

	var tr models.Transmittal
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", opts.ProjectID).Count(&count).Error; err != nil {
			return fmt.Errorf("transmittal: check project %d: %w", opts.ProjectID, err)
		}
		if count == 0 {
			return fmt.Errorf("transmittal: project %d: %w", opts.ProjectID, models.ErrNotFound)
		}

		source, err := resolveSource(tx, opts.ProjectID, opts.Source)
		if err != nil {
			return err
		}
		previous, err := latestNumber(tx, opts.ProjectID, source)
		if err != nil {
			return err
		}

		number := label.NextTransmittalNumber(previous)
		if utf8.RuneCountInString(number) > models.TransmittalNumberSize {
			return fmt.Errorf("transmittal: next number %q after %q exceeds %d characters: %w",
				number, previous, models.TransmittalNumberSize, models.ErrInvalid)
		}

		tr = models.Transmittal{
			ProjectID: opts.ProjectID,
			Number:    number,
			Source:    source,
			DateSent:  models.Day(now()),
			Notes:     opts.Notes,
		}
		if err := tx.Create(&tr).Error; err != nil {
			return fmt.Errorf("transmittal: create %s: %w", tr.Number, models.Classify(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TransmittalsCreated.WithLabelValues(tr.Source).Inc()
	log.Info("transmittal created", "project", tr.ProjectID, "transmittal", tr.Number, "source", tr.Source)
	return &tr, nil
}

// resolveSource returns source, or when it is empty the source of the
// project's earliest transmittal, or DefaultSource for a project without any.
func resolveSource(tx *gorm.DB, projectID uint, source string) (string, error) {
	if source != "" {
		return source, nil
	}
	var earliest models.Transmittal
	result := tx.Where("project_id = ?", projectID).
		Order("date_sent ASC, id ASC").
		Limit(1).
		Find(&earliest)
	if result.Error != nil {
		return "", fmt.Errorf("transmittal: earliest for project %d: %w", projectID, result.Error)
	}
	if result.RowsAffected == 0 {
		return DefaultSource, nil
	}
	return earliest.Source, nil
}

// latestNumber returns the number of the most recent transmittal of the
// project's source sequence, or "" when the sequence is empty.
func latestNumber(tx *gorm.DB, projectID uint, source string) (string, error) {
	var latest models.Transmittal
	result := tx.Where("project_id = ? AND source = ?", projectID, source).
		Order("date_sent DESC, id DESC").
		Limit(1).
		Find(&latest)
	if result.Error != nil {
		return "", fmt.Errorf("transmittal: latest for source %s: %w", source, result.Error)
	}
	if result.RowsAffected == 0 {
		return "", nil
	}
	return latest.Number, nil
}

// Get retrieves a transmittal by ID.
func Get(db *gorm.DB, id uint) (*models.Transmittal, error) {
	var tr models.Transmittal
	result := db.Where("id = ?", id).Limit(1).Find(&tr)
	if result.Error != nil {
		return nil, fmt.Errorf("transmittal: get %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("transmittal: %d: %w", id, models.ErrNotFound)
	}
	return &tr, nil
}

// List returns the transmittals of a project, most recent first.
func List(db *gorm.DB, projectID uint) ([]models.Transmittal, error) {
	var trs []models.Transmittal
	if err := db.Where("project_id = ?", projectID).
		Order("date_sent DESC, id DESC").
		Find(&trs).Error; err != nil {
		return nil, fmt.Errorf("transmittal: list project %d: %w", projectID, err)
	}
	return trs, nil
}

// Recent returns the latest transmittals across all projects.
func Recent(db *gorm.DB, limit int) ([]models.Transmittal, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}
	var trs []models.Transmittal
	if err := db.Order("date_sent DESC, id DESC").Limit(limit).Find(&trs).Error; err != nil {
		return nil, fmt.Errorf("transmittal: recent: %w", err)
	}
	return trs, nil
}

// GetDetails returns a transmittal and the revisions issued under it.
func GetDetails(db *gorm.DB, id uint) (*Details, error) {
	tr, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	var lines []Line
	if err := db.Model(&models.Revision{}).
		Select("revisions.*, documents.document_number AS document_number, documents.title AS document_title").
		Joins("JOIN documents ON documents.id = revisions.document_id").
		Where("revisions.transmittal_id = ?", id).
		Order("revisions.document_id ASC").
		Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("transmittal: revisions of %d: %w", id, err)
	}
	return &Details{Transmittal: *tr, Lines: lines}, nil
}

// Delete removes a transmittal and, by cascade, its revisions. Documents keep
// their cached revision summary.
func Delete(db *gorm.DB, id uint) error {
	result := db.Where("id = ?", id).Delete(&models.Transmittal{})
	if result.Error != nil {
		return fmt.Errorf("transmittal: delete %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("transmittal: %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// After returns transmittals recorded after the given ID, oldest first.
func After(db *gorm.DB, id uint) ([]models.Transmittal, error) {
	var trs []models.Transmittal
	if err := db.Where("id > ?", id).Order("id ASC").Find(&trs).Error; err != nil {
		return nil, fmt.Errorf("transmittal: after %d: %w", id, err)
	}
	return trs, nil
}

// LastID returns the highest transmittal ID, or zero when there are none.
func LastID(db *gorm.DB) (uint, error) {
	var tr models.Transmittal
	result := db.Order("id DESC").Limit(1).Find(&tr)
	if result.Error != nil {
		return 0, fmt.Errorf("transmittal: last id: %w", result.Error)
	}
	return tr.ID, nil
}
