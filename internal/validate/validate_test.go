package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/nvoskan/equiterm/internal/errs"
)

func TestEmail(t *testing.T) {
	t.Parallel()
	good := []string{"a@b.com", "first.last@sub.domain.org", "x+tag@y.co"}
	bad := []string{"", "plain", "a@b", "a b@c.com", "@c.com", "a@ b.com"}
	for _, s := range good {
		if !Email(s) {
			t.Fatalf("Email(%q) = false", s)
		}
	}
	for _, s := range bad {
		if Email(s) {
			t.Fatalf("Email(%q) = true", s)
		}
	}
}

func TestPassword(t *testing.T) {
	t.Parallel()
	cases := []struct {
		pw      string
		ok      bool
		hasWord string
	}{
		{"Secret123", true, ""},
		{"Ab1x", false, "8 characters"},
		{"alllower1", false, "uppercase"},
		{"ALLUPPER1", false, "lowercase"},
		{"NoDigitsHere", false, "number"},
	}
	for _, tc := range cases {
		err := Password(tc.pw)
		if tc.ok && err != nil {
			t.Fatalf("Password(%q): %v", tc.pw, err)
		}
		if !tc.ok {
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("Password(%q): want ErrValidation, got %v", tc.pw, err)
			}
			if !strings.Contains(err.Error(), tc.hasWord) {
				t.Fatalf("Password(%q): message %q lacks %q", tc.pw, err, tc.hasWord)
			}
		}
	}
}

func TestUsername(t *testing.T) {
	t.Parallel()
	if err := Username("alice_01"); err != nil {
		t.Fatalf("Username: %v", err)
	}
	for _, s := range []string{"ab", strings.Repeat("x", 21), "has space", "bad-dash", "p@t"} {
		if err := Username(s); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("Username(%q): want ErrValidation, got %v", s, err)
		}
	}
}

func TestURL(t *testing.T) {
	t.Parallel()
	good := []string{"https://example.com/report", "http://x.org"}
	bad := []string{"", "ftp://x.org", "example.com", "https://", "not a url"}
	for _, s := range good {
		if !URL(s) {
			t.Fatalf("URL(%q) = false", s)
		}
	}
	for _, s := range bad {
		if URL(s) {
			t.Fatalf("URL(%q) = true", s)
		}
	}
}

func TestOTP(t *testing.T) {
	t.Parallel()
	if !OTP("123456") {
		t.Fatalf("OTP(123456) = false")
	}
	for _, s := range []string{"12345", "1234567", "12345a", "", " 123456"} {
		if OTP(s) {
			t.Fatalf("OTP(%q) = true", s)
		}
	}
}

func TestURLs(t *testing.T) {
	t.Parallel()
	valid, problems := URLs([]string{" https://a.com ", "", "nope", "http://b.org"})
	if len(valid) != 2 || valid[0] != "https://a.com" || valid[1] != "http://b.org" {
		t.Fatalf("valid = %v", valid)
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "URL 3 is invalid") {
		t.Fatalf("problems = %v", problems)
	}
}
