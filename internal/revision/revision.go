// Package revision issues document revisions against transmittals.
//
// Issue is the only writer of revisions and of a document's cached
// revision_number and latest_issue. Both rows change in one transaction so the
// cache always names the newest revision.
package revision

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/drmeng/vds/internal/document"
	"github.com/drmeng/vds/internal/logging"
	"github.com/drmeng/vds/internal/metrics"
	"github.com/drmeng/vds/internal/models"
	"github.com/drmeng/vds/internal/transmittal"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"
)

// PurposeIssuedForReview is recorded on every issued revision.
const PurposeIssuedForReview = "IFR - Issued for Review"

// IssueOpts holds parameters for issuing one revision.
type IssueOpts struct {
	TransmittalID uint
	DocumentID    uint
	ProjectID     uint             // when set, the document must belong to this project
	Now           func() time.Time // defaults to time.Now
	Logger        hclog.Logger
}

// Issue records the next revision of a document under a transmittal and
// advances the document's cached revision summary. Nothing is written when
// either step fails; a repeated label or a document already in the
// transmittal fails with models.ErrConflict.
func Issue(db *gorm.DB, opts IssueOpts) (*models.Revision, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	log := logging.OrNull(opts.Logger)
	today := models.Day(now())

	var rev models.Revision
	err := db.Transaction(func(tx *gorm.DB) error {
		var tr models.Transmittal
		if err := take(tx, &tr, opts.TransmittalID); err != nil {
			return fmt.Errorf("revision: transmittal %d: %w", opts.TransmittalID, err)
		}
		var doc models.Document
		if err := take(tx, &doc, opts.DocumentID); err != nil {
			return fmt.Errorf("revision: document %d: %w", opts.DocumentID, err)
		}
		if opts.ProjectID != 0 && doc.ProjectID != opts.ProjectID {
			return fmt.Errorf("revision: document %s is not in project %d: %w",
				doc.DocumentNumber, opts.ProjectID, models.ErrInvalid)
		}

		next := document.NextRevision(&doc)
		if utf8.RuneCountInString(next) > models.RevisionLabelSize {
			return fmt.Errorf("revision: next label %q of %s exceeds %d characters: %w",
				next, doc.DocumentNumber, models.RevisionLabelSize, models.ErrInvalid)
		}

		var prev models.Revision
		result := tx.Where("document_id = ?", doc.ID).
			Order("date DESC, id DESC").
			Limit(1).
			Find(&prev)
		if result.Error != nil {
			return fmt.Errorf("revision: latest of %s: %w", doc.DocumentNumber, result.Error)
		}

		rev = models.Revision{
			TransmittalID:  tr.ID,
			DocumentID:     doc.ID,
			RevisionNumber: next,
			Date:           today,
			Purpose:        PurposeIssuedForReview,
		}
		if result.RowsAffected > 0 {
			rev.PreparedBy = prev.PreparedBy
			rev.ReviewedBy = prev.ReviewedBy
			rev.ApprovedBy = prev.ApprovedBy
		}

		if err := tx.Create(&rev).Error; err != nil {
			return fmt.Errorf("revision: issue %s rev %s in %s: %w",
				doc.DocumentNumber, next, tr.Number, models.Classify(err))
		}
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(map[string]interface{}{
			"revision_number": next,
			"latest_issue":    today,
		}).Error; err != nil {
			return fmt.Errorf("revision: update document %s: %w", doc.DocumentNumber, models.Classify(err))
		}
		return nil
	})

	metrics.RevisionIssues.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		log.Warn("revision not issued", "transmittal", opts.TransmittalID, "document", opts.DocumentID, "error", err)
		return nil, err
	}
	log.Info("revision issued", "transmittal", rev.TransmittalID, "document", rev.DocumentID, "label", rev.RevisionNumber)
	return &rev, nil
}

func take(tx *gorm.DB, dest interface{}, id uint) error {
	result := tx.Where("id = ?", id).Limit(1).Find(dest)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// BatchOpts holds parameters for issuing several documents under one new
// transmittal.
type BatchOpts struct {
	ProjectID   uint
	Source      string // passed to transmittal.Create
	Notes       string
	DocumentIDs []uint
	Now         func() time.Time
	Logger      hclog.Logger
}

// Failure is a document that could not be issued in a batch.
type Failure struct {
	DocumentID uint
	Err        error
}

// BatchResult reports the outcome of IssueBatch.
type BatchResult struct {
	Transmittal *models.Transmittal
	Revisions   []models.Revision
	Failures    []Failure
}

// IssueBatch creates one transmittal and issues each document against it.
// Every document is its own transaction: a failure is recorded and the batch
// continues, leaving the transmittal and earlier revisions in place. The
// returned error aggregates the per-document failures; the result is non-nil
// whenever the transmittal was created.
func IssueBatch(db *gorm.DB, opts BatchOpts) (*BatchResult, error) {
	if len(opts.DocumentIDs) == 0 {
		return nil, fmt.Errorf("revision: batch: no documents selected: %w", models.ErrInvalid)
	}
	log := logging.OrNull(opts.Logger)

	tr, err := transmittal.Create(db, transmittal.CreateOpts{
		ProjectID: opts.ProjectID,
		Source:    opts.Source,
		Notes:     opts.Notes,
		Now:       opts.Now,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("revision: batch: %w", err)
	}

	res := &BatchResult{Transmittal: tr}
	var errs *multierror.Error
	for _, id := range opts.DocumentIDs {
		rev, err := Issue(db, IssueOpts{
			TransmittalID: tr.ID,
			DocumentID:    id,
			ProjectID:     opts.ProjectID,
			Now:           opts.Now,
			Logger:        log,
		})
		if err != nil {
			res.Failures = append(res.Failures, Failure{DocumentID: id, Err: err})
			errs = multierror.Append(errs, err)
			continue
		}
		res.Revisions = append(res.Revisions, *rev)
	}

	log.Info("batch issued", "transmittal", tr.Number, "issued", len(res.Revisions), "failed", len(res.Failures))
	return res, errs.ErrorOrNil()
}

// Get retrieves a revision by ID.
func Get(db *gorm.DB, id uint) (*models.Revision, error) {
	var rev models.Revision
	if err := take(db, &rev, id); err != nil {
		return nil, fmt.Errorf("revision: %d: %w", id, err)
	}
	return &rev, nil
}

// ListForDocument returns a document's revisions, newest first.
func ListForDocument(db *gorm.DB, documentID uint) ([]models.Revision, error) {
	var revs []models.Revision
	if err := db.Where("document_id = ?", documentID).
		Order("date DESC, id DESC").
		Find(&revs).Error; err != nil {
		return nil, fmt.Errorf("revision: list document %d: %w", documentID, err)
	}
	return revs, nil
}
