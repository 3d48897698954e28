// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jeranaias/dixel/internal/api"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// InputError is a form value rejected before contacting the backend.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

var (
	errMissingFields = "Veuillez remplir tous les champs"
	errBadEmail      = "Format d'email invalide. Veuillez vérifier votre adresse email (exemple: votre@email.com)"
	errShortPassword = "Le mot de passe doit contenir au moins 6 caractères"
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidateLogin checks login form values.
func ValidateLogin(email, password string) error {
	if email == "" || password == "" {
		return &InputError{Field: "form", Message: errMissingFields}
	}
	if !ValidEmail(email) {
		return &InputError{Field: "email", Message: errBadEmail}
	}
	return nil
}

// ValidateSignup checks signup form values.
func ValidateSignup(name, email, password string) error {
	if name == "" || email == "" || password == "" {
		return &InputError{Field: "form", Message: errMissingFields}
	}
	if !ValidEmail(email) {
		return &InputError{Field: "email", Message: errBadEmail}
	}
	if len([]rune(password)) < MinPasswordLength {
		return &InputError{Field: "password", Message: errShortPassword}
	}
	return nil
}

// FriendlyError rewrites backend validation messages into user-facing
// text. Non-auth errors pass through unchanged.
func FriendlyError(err error) error {
	var aerr *api.AuthError
	if !errors.As(err, &aerr) {
		return err
	}
	msg := aerr.Message
	switch {
	case strings.Contains(msg, "did not match the expected pattern"),
		strings.Contains(msg, "string does not match expected pattern"),
		strings.Contains(msg, "not a valid email"):
		msg = "Format d'email invalide. Veuillez vérifier que votre adresse email est correcte (exemple: votre@email.com)"
	case strings.Contains(msg, "field required"):
		msg = "Veuillez remplir tous les champs requis"
	case strings.Contains(msg, "validation error"):
		msg = "Les données saisies ne sont pas valides. Veuillez vérifier vos informations."
	default:
		return err
	}
	return &api.AuthError{Status: aerr.Status, Message: msg}
}
