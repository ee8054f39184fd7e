package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"todo-planner/internal/errs"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// rule validates one request field against a validator tag.
type rule struct {
	field string
	value any
	tag   string
}

func checkRules(rules ...rule) error {
	out := &errs.ValidationError{}
	for _, r := range rules {
		err := validate.Var(r.value, r.tag)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			out.Add(r.field, message(r.field, fe))
		}
	}
	return out.OrNil()
}

func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &errs.ValidationError{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe.Field(), fe))
	}
	return out
}

func message(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "datetime":
		return fmt.Sprintf("The %s field must be a valid date.", label)
	case "lte":
		return fmt.Sprintf("The %s field must not be greater than %d kilobytes.", label, attachmentLimitKiB)
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}
