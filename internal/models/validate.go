package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// priceLimit is the first value that no longer fits decimal(5,2).
var priceLimit = decimal.New(1000, 0)

// Validate checks struct tags and returns the first failure as an ErrValidation.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return ValidationError(fe.Field(), describe(fe))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// ValidatePrice enforces a non-negative decimal with at most 2 places that fits decimal(5,2).
func ValidatePrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return ValidationError("price", "must not be negative")
	case !p.Equal(p.Round(PricePlaces)):
		return ValidationError("price", fmt.Sprintf("must have at most %d decimal places", PricePlaces))
	case p.GreaterThanOrEqual(priceLimit):
		return ValidationError("price", fmt.Sprintf("must have at most %d digits", PriceMaxDigits))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
