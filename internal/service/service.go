package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kitchenops/backend/internal/domain"
)

// DataRepository is re-exported from domain for convenience
type DataRepository = domain.Repository

var validate = validator.New()

// validateStruct runs struct-tag validation and reports the first failing field
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: field %s failed on %q", domain.ErrValidation, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

// internal wraps a storage failure unless it already carries a domain kind
func internal(op string, err error) error {
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInternal, err)
}
