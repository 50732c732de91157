package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

const (
	minDeveloperPasswordLen = 8
	minUserPasswordLen      = 6
	maxPasswordLen          = 72
	maxNameLen              = 100
)

// normalizeEmail validates a bare address and lowercases it.
func normalizeEmail(
	email string,
) (
	string,
	error,
) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", fmt.Errorf("%w: valid email required", ErrValidation)
	}
	at := strings.LastIndexByte(email, '@')
	if !strings.Contains(email[at+1:], ".") {
		return "", fmt.Errorf("%w: valid email required", ErrValidation)
	}
	return strings.ToLower(email), nil
}

func validateDeveloperPassword(
	password string,
) error {
	if len(password) < minDeveloperPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minDeveloperPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordLen)
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password must contain uppercase, lowercase and a number", ErrValidation)
	}
	return nil
}

func validateUserPassword(
	password string,
) error {
	if len(password) < minUserPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minUserPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordLen)
	}
	return nil
}

func normalizeName(
	name string,
) (
	string,
	error,
) {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLen {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLen)
	}
	return name, nil
}
