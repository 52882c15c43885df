package database

import (
	"errors"

	"gorm.io/gorm"

	"library_service/pkg/models"
)

// TranslateError maps gorm's errors onto the model sentinels. Anything it
// does not recognise is returned unchanged.
func TranslateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.ErrAlreadyExists
	}
	return err
}
