package repositories

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("already exists")
	// ErrConstraint is returned when a CHECK or foreign key constraint rejects a write.
	ErrConstraint = errors.New("violates a constraint")
)

// translate maps gorm errors onto the package sentinels, prefixing what.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %w", what, ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrCheckConstraintViolated), isSQLiteCheck(err):
		return fmt.Errorf("%s %w: %v", what, ErrConstraint, err)
	default:
		return fmt.Errorf("failed to access %s: %w", what, err)
	}
}

// isSQLiteCheck reports a CHECK failure from the sqlite driver, which the
// gorm sqlite dialector does not translate.
func isSQLiteCheck(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintCheck
}
