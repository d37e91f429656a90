// Package digest reports active documents that are past their next due date.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/drmeng/vds/internal/document"
	"github.com/drmeng/vds/internal/logging"
	"github.com/drmeng/vds/internal/models"
	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Entry is one overdue document.
type Entry struct {
	Project        string    `json:"project"`
	DocumentID     uint      `json:"document_id"`
	DocumentNumber string    `json:"document_number"`
	Title          string    `json:"title"`
	Revision       string    `json:"revision"`
	NextDue        time.Time `json:"next_due"`
	DaysOverdue    int       `json:"days_overdue"`
}

// Report lists overdue documents as of a date, oldest due date first.
type Report struct {
	Date    time.Time
	Entries []Entry
}

// Build collects the documents overdue on today.
func Build(db *gorm.DB, today time.Time) (*Report, error) {
	today = models.Day(today)
	docs, err := document.Overdue(db, today)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}

	projects := make(map[uint]string)
	if len(docs) > 0 {
		ids := make([]uint, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ProjectID)
		}
		var ps []models.Project
		if err := db.Where("id IN ?", ids).Find(&ps).Error; err != nil {
			return nil, fmt.Errorf("digest: projects: %w", err)
		}
		for _, p := range ps {
			projects[p.ID] = p.WANumber
		}
	}

	r := &Report{Date: today}
	for _, d := range docs {
		due := models.Day(*d.NextDue)
		r.Entries = append(r.Entries, Entry{
			Project:        projects[d.ProjectID],
			DocumentID:     d.ID,
			DocumentNumber: d.DocumentNumber,
			Title:          d.Title,
			Revision:       d.CurrentRevision(),
			NextDue:        due,
			DaysOverdue:    int(today.Sub(due).Hours() / 24),
		})
	}
	return r, nil
}

// Empty reports whether nothing is overdue.
func (r *Report) Empty() bool {
	return len(r.Entries) == 0
}

// Format renders the report as plain text, one document per line.
func (r *Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overdue documents as of %s: %d\n", r.Date.Format("2006-01-02"), len(r.Entries))
	for _, e := range r.Entries {
		rev := e.Revision
		if rev == "" {
			rev = "-"
		}
		fmt.Fprintf(&b, "%s  %s rev %s  due %s (%dd)  %s\n",
			e.Project, e.DocumentNumber, rev, e.NextDue.Format("2006-01-02"), e.DaysOverdue, e.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ValidateSchedule checks a 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("digest: schedule %q: %w", expr, err)
	}
	return nil
}

// NextRun returns the first time after from that expr fires.
func NextRun(expr string, from time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("digest: schedule %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

// Poster receives the rendered digest.
type Poster interface {
	Post(ctx context.Context, text string)
}

// RunOpts holds parameters for the digest scheduler.
type RunOpts struct {
	DB       *gorm.DB
	Schedule string
	Poster   Poster // optional
	Now      func() time.Time
	Logger   hclog.Logger
}

// Fire builds one digest and delivers it. An empty digest is suppressed.
func Fire(ctx context.Context, opts RunOpts) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	log := logging.OrNull(opts.Logger)

	r, err := Build(opts.DB, now())
	if err != nil {
		return err
	}
	if r.Empty() {
		log.Debug("digest: nothing overdue")
		return nil
	}
	log.Info("digest: overdue documents", "count", len(r.Entries))
	if opts.Poster != nil {
		opts.Poster.Post(ctx, r.Format())
	}
	return nil
}

// Run fires the digest on the configured schedule until ctx is cancelled.
func Run(ctx context.Context, opts RunOpts) error {
	log := logging.OrNull(opts.Logger)
	c := cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(opts.Schedule, func() {
		if err := Fire(ctx, opts); err != nil {
			log.Error("digest: build failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("digest: schedule %q: %w", opts.Schedule, err)
	}

	c.Start()
	log.Info("digest: scheduled", "schedule", opts.Schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
