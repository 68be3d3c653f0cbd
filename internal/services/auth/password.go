// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords map[string]struct{}

func init() {
	commonPasswords = make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		password := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if password != "" {
			commonPasswords[password] = struct{}{}
		}
	}
}

// maxSimilarity is the ratio above which a password counts as too similar
// to a user attribute.
const maxSimilarity = 0.7

// PasswordValidator validates passwords against various criteria
type PasswordValidator struct {
	MinLength            int
	CheckCommonPasswords bool
	CheckUserSimilarity  bool
}

// DefaultPasswordValidator returns a validator with sensible defaults
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:            8,
		CheckCommonPasswords: true,
		CheckUserSimilarity:  true,
	}
}

// UserAttribute is a piece of personal information a password must not resemble.
type UserAttribute struct {
	Label string // used in the error message, e.g. "email address"
	Value string
}

// ValidationError represents a single password validation error
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps multiple validation errors
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// Messages returns all error messages
func (e *PasswordValidationError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return messages
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Err returns nil for a valid result and a *PasswordValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &PasswordValidationError{Errors: r.Errors}
}

// Validate checks a password against all configured validators
func (v *PasswordValidator) Validate(password string, attrs ...UserAttribute) ValidationResult {
	var errors []ValidationError

	if v.CheckUserSimilarity {
		if label, similar := similarAttribute(password, attrs); similar {
			errors = append(errors, ValidationError{
				Code:    "password_too_similar",
				Message: fmt.Sprintf("The password is too similar to the %s.", label),
			})
		}
	}

	if utf8.RuneCountInString(password) < v.MinLength {
		errors = append(errors, ValidationError{
			Code:    "password_too_short",
			Message: fmt.Sprintf("This password is too short. It must contain at least %d characters.", v.MinLength),
		})
	}

	if v.CheckCommonPasswords && isCommonPassword(password) {
		errors = append(errors, ValidationError{
			Code:    "password_too_common",
			Message: "This password is too common.",
		})
	}

	if isEntirelyNumeric(password) {
		errors = append(errors, ValidationError{
			Code:    "password_entirely_numeric",
			Message: "This password is entirely numeric.",
		})
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

func isCommonPassword(password string) bool {
	_, exists := commonPasswords[strings.ToLower(strings.TrimSpace(password))]
	return exists
}

// similarAttribute compares the password with each attribute and with every
// word of it, e.g. the local part and domain of an email address.
func similarAttribute(password string, attrs []UserAttribute) (string, bool) {
	passwordLower := strings.ToLower(password)

	for _, attr := range attrs {
		if attr.Value == "" {
			continue
		}
		valueLower := strings.ToLower(attr.Value)

		parts := strings.FieldsFunc(valueLower, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		parts = append(parts, valueLower)

		for _, part := range parts {
			if exceedsMaximumLengthRatio(passwordLower, part) {
				continue
			}
			if similarity(passwordLower, part) >= maxSimilarity {
				return attr.Label, true
			}
		}
	}

	return "", false
}

// exceedsMaximumLengthRatio skips comparisons where the password is so much
// longer than the value that they can never be similar.
func exceedsMaximumLengthRatio(password, value string) bool {
	pwdLen := len(password)
	valueLen := len(value)
	lengthBound := maxSimilarity / 2 * float64(pwdLen)
	return pwdLen >= 10*valueLen && float64(valueLen) < lengthBound
}

// similarity is 2*M/T where M is the length of the longest common
// subsequence and T the total length of both strings.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	lcs := longestCommonSubsequence(a, b)
	return 2 * float64(lcs) / float64(len(a)+len(b))
}

func longestCommonSubsequence(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][n]
}
