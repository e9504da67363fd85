// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"quill/internal/models"

	"gorm.io/gorm"
)

// translate maps storage errors onto application errors.
func translate(err error, resource string, key interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, key)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.NewConflictError(resource + " already exists")
	default:
		return models.NewInternalError(err)
	}
}
