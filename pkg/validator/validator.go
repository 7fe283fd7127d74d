package validator

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	RegisterCustomValidations(validate)
}

// ValidateStruct runs the shared validator against a request struct.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
