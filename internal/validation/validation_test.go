// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package validation_test

import (
	"errors"
	"fmt"
	"testing"

	"codeberg.org/oliverandrich/ticketing/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name     string `json:"name" validate:"notblank,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
	Internal string `json:"-" validate:"omitempty,max=1"`
}

func TestValidate_Valid(t *testing.T) {
	v := validation.New()

	err := v.Validate(signup{Name: "John", Email: "john@example.com", Code: "123456"})

	assert.NoError(t, err)
}

func TestValidate_FieldErrorsUseJSONNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(signup{Name: "   ", Email: "not-an-email", Code: "12"})

	errs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"This field may not be blank."}, errs["name"])
	assert.Equal(t, []string{"Enter a valid email address."}, errs["email"])
	assert.Equal(t, []string{"Ensure this field has exactly 6 characters."}, errs["code"])
}

func TestValidate_Required(t *testing.T) {
	v := validation.New()

	err := v.Validate(signup{Name: "John"})

	errs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"This field is required."}, errs["email"])
	assert.NotContains(t, errs, "name")
}

func TestValidate_MaxLength(t *testing.T) {
	v := validation.New()
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}

	err := v.Validate(signup{Name: string(long), Email: "john@example.com"})

	errs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Ensure this field has no more than 255 characters."}, errs["name"])
}

func TestValidate_NonStructIsError(t *testing.T) {
	v := validation.New()

	err := v.Validate("plain string")

	require.Error(t, err)
	_, ok := validation.AsErrors(err)
	assert.False(t, ok)
}

func TestErrors_AddAndMerge(t *testing.T) {
	errs := validation.Errors{}
	errs.Add("password", "Too short.")
	errs.Merge(validation.Errors{"password": {"Too common."}, "email": {"Taken."}})

	assert.Equal(t, []string{"Too short.", "Too common."}, errs["password"])
	assert.Equal(t, []string{"Taken."}, errs["email"])
}

func TestErrors_ErrorIsDeterministic(t *testing.T) {
	errs := validation.Errors{"b": {"second"}, "a": {"first"}}

	assert.Equal(t, "validation failed: a: first; b: second", errs.Error())
}

func TestAsErrors_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", validation.Field("email", "Taken."))

	errs, ok := validation.AsErrors(wrapped)

	require.True(t, ok)
	assert.Equal(t, []string{"Taken."}, errs["email"])
}

func TestAsErrors_Other(t *testing.T) {
	_, ok := validation.AsErrors(errors.New("boom"))

	assert.False(t, ok)
}

func TestNonField(t *testing.T) {
	errs := validation.NonField("Unable to log in.")

	assert.Equal(t, []string{"Unable to log in."}, errs[validation.NonFieldErrors])
}
