package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/go-playground/validator/v10"
)

// newValidator reads the same binding tags gin checks at the HTTP edge and
// reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return &registration.ValidationError{Message: err.Error()}
	}

	fe := ve[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	return &registration.ValidationError{Field: field, Message: ruleMessage(fe.Tag(), fe.Param())}
}

func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	default:
		return "failed " + rule + " validation"
	}
}
