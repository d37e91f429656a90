package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Error taxonomy shared by every register operation. Callers match with
// errors.Is; the concrete error always carries the entity and key.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("uniqueness conflict")
	ErrInvalid  = errors.New("invalid input")
)

// Classify maps store errors onto the taxonomy. The connection must be opened
// with gorm.Config.TranslateError so that drivers report duplicate keys as
// gorm.ErrDuplicatedKey. Errors it does not recognise are returned as-is.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// Day truncates t to its calendar date in UTC. Every date column is written
// through Day so that day-granularity ordering is stable across drivers.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
