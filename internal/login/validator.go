package login

import (
	"fmt"
	"regexp"
)

// DefaultEmailPattern accepts "local@domain.tld" with no whitespace.
const DefaultEmailPattern = `^[^@\s]+@[^@\s]+\.[^@\s]+$`

// DefaultMinPasswordLength is the shortest accepted password.
const DefaultMinPasswordLength = 6

// Validator decides whether the form may be submitted.
type Validator interface {
	Validate(email, password string) bool
}

// RuleValidator checks the email against a pattern and the password length.
type RuleValidator struct {
	email       *regexp.Regexp
	minPassword int
}

// NewRuleValidator compiles emailPattern. minPassword counts runes.
func NewRuleValidator(emailPattern string, minPassword int) (*RuleValidator, error) {
	re, err := regexp.Compile(emailPattern)
	if err != nil {
		return nil, fmt.Errorf("email pattern: %w", err)
	}
	if minPassword < 1 {
		return nil, fmt.Errorf("min password length must be positive, got %d", minPassword)
	}
	return &RuleValidator{email: re, minPassword: minPassword}, nil
}

// DefaultValidator returns the validator with the default rules.
func DefaultValidator() *RuleValidator {
	return &RuleValidator{
		email:       regexp.MustCompile(DefaultEmailPattern),
		minPassword: DefaultMinPasswordLength,
	}
}

// Validate implements Validator.
func (v *RuleValidator) Validate(email, password string) bool {
	return v.email.MatchString(email) && len([]rune(password)) >= v.minPassword
}
