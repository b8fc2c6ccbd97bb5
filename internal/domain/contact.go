package domain

import (
	"regexp"
	"strings"
)

// emailShape matches something@something.tld.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ContactMessage is a contact-form submission. It is never persisted.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Validation messages returned to the contact form.
const (
	MissingContactFields = "All fields are required"
	InvalidContactEmail  = "Invalid email address"
)

// Normalize trims surrounding whitespace from every field.
func (m ContactMessage) Normalize() ContactMessage {
	return ContactMessage{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Message: strings.TrimSpace(m.Message),
	}
}

// Validate requires every field and a plausible email address.
func (m ContactMessage) Validate() error {
	m = m.Normalize()
	switch {
	case m.Name == "":
		return &ValidationError{Field: "name", Message: MissingContactFields}
	case m.Email == "":
		return &ValidationError{Field: "email", Message: MissingContactFields}
	case m.Message == "":
		return &ValidationError{Field: "message", Message: MissingContactFields}
	case !ValidEmail(m.Email):
		return &ValidationError{Field: "email", Message: InvalidContactEmail}
	}
	return nil
}

// ValidEmail reports whether s has the basic shape of an email address.
func ValidEmail(s string) bool {
	return emailShape.MatchString(s)
}
