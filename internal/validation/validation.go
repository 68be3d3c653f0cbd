// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package validation validates request structs and collects field-keyed
// error messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// NonFieldErrors is the key for errors that do not belong to a single field.
const NonFieldErrors = "non_field_errors"

// Errors maps a JSON field name to its error messages.
type Errors map[string][]string

// Error implements the error interface.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e[field], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a message to a field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Merge appends all messages of other.
func (e Errors) Merge(other Errors) {
	for field, messages := range other {
		e[field] = append(e[field], messages...)
	}
}

// Field returns a single-field error.
func Field(field, message string) Errors {
	return Errors{field: {message}}
}

// NonField returns an error not bound to a field.
func NonField(message string) Errors {
	return Errors{NonFieldErrors: {message}}
}

// AsErrors extracts Errors from an error chain.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

// Validator validates structs using their `validate` tags. It satisfies
// echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator that reports fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// register function to get tag name from json tags.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	return &Validator{v: v}
}

// Validate checks s and returns Errors when a rule fails.
func (va *Validator) Validate(s any) error {
	err := va.v.Struct(s)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}

	errs := make(Errors, len(valErrs))
	for _, e := range valErrs {
		errs.Add(e.Field(), message(e))
	}
	return errs
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "notblank":
		return "This field may not be blank."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
	case "len":
		return fmt.Sprintf("Ensure this field has exactly %s characters.", e.Param())
	case "numeric":
		return "A valid number is required."
	default:
		return "Invalid value."
	}
}
