package httputil

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is the shape clients expect for a rejected input field.
type FieldError struct {
	Param    string `json:"param"`
	Msg      string `json:"msg"`
	Value    any    `json:"value,omitempty"`
	Location string `json:"location"`
}

// Validation accumulates field errors for one request.
type Validation struct {
	Errors []FieldError
}

func (v *Validation) Add(param, msg string, value any) {
	v.Errors = append(v.Errors, FieldError{
		Param:    param,
		Msg:      msg,
		Value:    value,
		Location: "body",
	})
}

func (v *Validation) AddQuery(param, msg string, value any) {
	v.Errors = append(v.Errors, FieldError{
		Param:    param,
		Msg:      msg,
		Value:    value,
		Location: "query",
	})
}

func (v *Validation) Ok() bool {
	return len(v.Errors) == 0
}

const defaultMessage = "Invalid value"

var validate *validator.Validate

func init() {
	validate = newValidator()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// the stock email rule accepts hosts without a dot
	err := v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Check validates a request body against its `validate` tags and records a
// FieldError for every failure. The message comes from the field's `msg`
// tag, or `itemmsg` for elements of a slice. Fields tagged `secret:"true"`
// never echo their value.
func (v *Validation) Check(body any) {
	err := validate.Struct(body)
	if err == nil {
		return
	}
	var failed validator.ValidationErrors
	if !errors.As(err, &failed) {
		v.Add("", err.Error(), nil)
		return
	}

	t := reflect.TypeOf(body)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, fe := range failed {
		// namespaces look like "bulkRequest.queries[1]"
		_, param, _ := strings.Cut(fe.Namespace(), ".")
		fieldName, _, item := strings.Cut(fe.StructField(), "[")

		msg := defaultMessage
		var value any = fe.Value()
		field, ok := t.FieldByName(fieldName)
		if ok {
			tag := "msg"
			if item {
				tag = "itemmsg"
			}
			if m := field.Tag.Get(tag); m != "" {
				msg = m
			}
			if field.Tag.Get("secret") == "true" {
				value = nil
			}
		}
		v.Add(param, msg, value)
	}
}

func IsEmail(value string) bool {
	if validate.Var(value, "required,email") != nil {
		return false
	}
	_, domain, ok := strings.Cut(value, "@")
	return ok && strings.Contains(domain, ".")
}

// IsHttpUrl reports whether value is an absolute http or https url with a
// host.
func IsHttpUrl(value string) bool {
	return validate.Var(value, "required,http_url") == nil
}
