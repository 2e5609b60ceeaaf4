package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// same shape as the web form check: /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Names: letters (any script), spaces, hyphens, apostrophes, periods.
var nameRe = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)

// License numbers: letters, digits, dashes, slashes.
var licenseRe = regexp.MustCompile(`^[A-Za-z0-9\-/ ]{3,40}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len(name) <= 120 && nameRe.MatchString(name)
}

// IsValidPhone accepts 7 to 15 digits with the usual separators (+, spaces,
// dashes, dots, parentheses).
func IsValidPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

func IsValidLicense(license string) bool {
	return licenseRe.MatchString(strings.TrimSpace(license))
}

// ErrInvalid marks input rejected by a service. Handlers map it to 400 and
// show the wrapped message.
var ErrInvalid = errors.New("Invalid input")

// Failf wraps ErrInvalid with a user-facing message.
func Failf(format string, args ...interface{}) error {
	return &invalidError{msg: fmt.Sprintf(format, args...)}
}

type invalidError struct{ msg string }

func (e *invalidError) Error() string { return e.msg }
func (e *invalidError) Unwrap() error { return ErrInvalid }
