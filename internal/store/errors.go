package store

import (
	"strings"

	domainerrors "github.com/playlore/playlore-server/internal/errors"
)

// Sentinel errors returned by store implementations. They share codes with the domain
// taxonomy, so errors.Is matches either.
var (
	ErrNotFound      = domainerrors.ErrNotFound
	ErrAlreadyExists = domainerrors.ErrConflict
	ErrInvalidInput  = domainerrors.ErrValidation
)

// IsUniqueViolation reports whether err is a UNIQUE constraint failure from SQLite.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure from SQLite.
func IsForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
