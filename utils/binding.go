package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator:
// ifsc, indian_phone and money (a positive decimal with at most two places).
// Field names in errors are the json names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("ifsc", func(fl validator.FieldLevel) bool {
			return ValidateIFSC(fl.Field().String())
		})
		_ = v.RegisterValidation("indian_phone", func(fl validator.FieldLevel) bool {
			ok, _ := ValidatePhone(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			amount, err := decimal.NewFromString(fl.Field().String())
			return err == nil && ValidateAmount(amount) == nil
		})
	})
}

// decimalValue lets tags see a decimal as its string form
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// BindingErrors turns a ShouldBind failure into a validation error the
// response helpers render field by field
func BindingErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequestError("Invalid request body", err)
	}
	fields := make(FieldValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldValidationError{Field: fe.Field(), Message: bindingMessage(fe)})
	}
	return BadRequestError("Validation failed", fields)
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "ifsc":
		return "must be a valid 11 character IFSC code"
	case "indian_phone":
		return "must be a valid 10 digit mobile number"
	case "money":
		return "must be a positive amount with at most two decimal places"
	case "dive", "unique":
		return "contains invalid entries"
	}
	return "is invalid"
}
