package repository

import (
	"errors"
	"fmt"

	"github.com/nimasrn/laser/internal/model"
	"gorm.io/gorm"
)

// ErrConcurrentUpdate is returned when a conditional update matched no row:
// the row changed since it was read.
var ErrConcurrentUpdate = errors.New("concurrent update detected")

func translate(err error, entity string, key any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.NotFound(entity, key)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s already exists: %w", entity, model.ErrConflict)
	}
	return fmt.Errorf("%s: %w", entity, err)
}

func expectOneRow(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}
