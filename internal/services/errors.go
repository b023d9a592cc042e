package services

import (
	apierrors "counterviz/internal/errors"
)

// Service errors. They are APIErrors so handlers can render them directly.
var (
	ErrNoReports        = apierrors.ErrNoReports
	ErrLibraryNotLoaded = apierrors.ErrLibraryNotLoaded
	ErrLibraryDisabled  = apierrors.ErrServiceUnavailable
)
