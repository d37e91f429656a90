package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/drmeng/vds/internal/models"
	"github.com/drmeng/vds/internal/project"
	"gorm.io/gorm"
)

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// orDash returns "-" for an empty value so table columns stay aligned.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatDate renders a calendar date, or "-" when unset.
func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

// parseDate accepts any unambiguous date layout ("2025-06-01", "Jun 1 2025",
// "06/01/2025"). An empty string means no date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	d := models.Day(t)
	return &d, nil
}

// parseIDs converts positional arguments to record IDs.
func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(v), nil
}

// resolveProject finds a project by WA number, falling back to a numeric ID.
func resolveProject(gormDB *gorm.DB, ref string) (*models.Project, error) {
	p, err := project.GetByWANumber(gormDB, ref)
	if err == nil || !errors.Is(err, models.ErrNotFound) {
		return p, err
	}
	if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil && id > 0 {
		return project.Get(gormDB, uint(id))
	}
	return nil, err
}
