// Package validate performs client-side form checks before any network
// call. Failures wrap errs.ErrValidation and are rendered inline, never
// sent to the backend.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/nvoskan/equiterm/internal/errs"
)

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	otpRe      = regexp.MustCompile(`^\d{6}$`)
	upperRe    = regexp.MustCompile(`[A-Z]`)
	lowerRe    = regexp.MustCompile(`[a-z]`)
	digitRe    = regexp.MustCompile(`\d`)
)

// Email reports whether s has a plausible address shape.
func Email(s string) bool {
	return emailRe.MatchString(s)
}

// Password checks strength: at least 8 characters with one uppercase, one
// lowercase and one digit.
func Password(s string) error {
	switch {
	case len(s) < 8:
		return fmt.Errorf("%w: password must be at least 8 characters long", errs.ErrValidation)
	case !upperRe.MatchString(s):
		return fmt.Errorf("%w: password must contain at least one uppercase letter", errs.ErrValidation)
	case !lowerRe.MatchString(s):
		return fmt.Errorf("%w: password must contain at least one lowercase letter", errs.ErrValidation)
	case !digitRe.MatchString(s):
		return fmt.Errorf("%w: password must contain at least one number", errs.ErrValidation)
	}
	return nil
}

// Username checks 3-20 characters, letters, digits and underscores only.
func Username(s string) error {
	if len(s) < 3 || len(s) > 20 {
		return fmt.Errorf("%w: username must be 3-20 characters long", errs.ErrValidation)
	}
	if !usernameRe.MatchString(s) {
		return fmt.Errorf("%w: username can only contain letters, numbers, and underscores", errs.ErrValidation)
	}
	return nil
}

// URL reports whether s parses as an absolute http(s) URL.
func URL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// OTP reports whether s is exactly six digits.
func OTP(s string) bool {
	return otpRe.MatchString(s)
}

// URLs trims and filters a URL list: blank entries are skipped, well-formed
// ones are collected, and each malformed one yields a positional problem
// message.
func URLs(urls []string) (valid []string, problems []string) {
	for i, raw := range urls {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if URL(trimmed) {
			valid = append(valid, trimmed)
		} else {
			problems = append(problems, fmt.Sprintf("URL %d is invalid: %s", i+1, trimmed))
		}
	}
	return valid, problems
}
