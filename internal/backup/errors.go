// Package backup exports the catalog to archives and moves tag vocabularies between
// catalogs.
package backup

import (
	domainerrors "github.com/playlore/playlore-server/internal/errors"
)

var (
	// ErrInvalidManifest indicates the manifest is missing or malformed.
	ErrInvalidManifest = domainerrors.Validation("invalid or missing manifest")

	// ErrVersionMismatch indicates the backup version is not supported.
	ErrVersionMismatch = domainerrors.Validation("backup version not supported")

	// ErrBackupNotFound indicates the requested backup does not exist.
	ErrBackupNotFound = domainerrors.NotFound("backup not found")
)
