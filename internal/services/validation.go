package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ilivehere/backend/internal/oops"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateRequest turns the first failing field into a validation error a caller can show.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return oops.New(err, "failed to validate request")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return oops.Validation("%s is required", fe.Field())
	case "max":
		return oops.Validation("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return oops.Validation("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return oops.Validation("%s must be a valid email address", fe.Field())
	case "oneof":
		return oops.Validation("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "alphanum":
		return oops.Validation("%s may only contain letters and digits", fe.Field())
	}
	return oops.Validation("%s is invalid", fe.Field())
}
