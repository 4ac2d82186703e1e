package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")
	ErrUnsupportedFormat    = errors.New("unsupported file format")
)

// notFound maps gorm's record-not-found to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func invalidCohort(id uint) error {
	return model.NewValidationError(nil, model.FieldError{
		Field: "cohort",
		Error: fmt.Sprintf("invalid pk \"%d\" - object does not exist", id),
	})
}
