package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pauljones0/korting/internal/models"
)

// Validator is a wrapper around the validator library with the Deal rules
// registered.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance.
func New() *Validator {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("category", validCategory)
	v.RegisterStructValidation(dealInvariants, models.Deal{})
	return &Validator{
		validate: v,
	}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func validCategory(fl validator.FieldLevel) bool {
	return models.Category(fl.Field().String()).Valid()
}

// dealInvariants enforces the cross-field rules every stored Deal satisfies:
// 0 <= sale <= original and valid_from <= valid_until.
func dealInvariants(sl validator.StructLevel) {
	d := sl.Current().Interface().(models.Deal)

	if d.SalePrice.IsNegative() {
		sl.ReportError(d.SalePrice, "SalePrice", "sale_price", "gte_zero", "")
	}
	if d.SalePrice.GreaterThan(d.OriginalPrice) {
		sl.ReportError(d.OriginalPrice, "OriginalPrice", "original_price", "gtefield", "SalePrice")
	}
	if d.ValidFrom.IsZero() {
		sl.ReportError(d.ValidFrom, "ValidFrom", "valid_from", "required", "")
	}
	if d.ValidUntil.IsZero() {
		sl.ReportError(d.ValidUntil, "ValidUntil", "valid_until", "required", "")
	}
	if d.ValidFrom.After(d.ValidUntil) {
		sl.ReportError(d.ValidFrom, "ValidFrom", "valid_from", "ltefield", "ValidUntil")
	}
}
