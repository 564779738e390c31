// Package contact accepts messages from the storefront contact form, keeps
// them for staff and relays them to the shop inbox by email.
package contact

import (
	"regexp"
	"strings"
	"time"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

const maxFieldLen = 500

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	scriptURIPattern = regexp.MustCompile(`(?i)javascript:`)
	markupReplacer   = strings.NewReplacer("<", "", ">", "")
)

type Input struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Sanitize strips markup brackets and script URIs and caps the length.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = markupReplacer.Replace(s)
	s = scriptURIPattern.ReplaceAllString(s, "")
	if r := []rune(s); len(r) > maxFieldLen {
		s = string(r[:maxFieldLen])
	}
	return s
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.ToLower(email))
}

// NewMessage validates the input and returns the message to store.
func NewMessage(in Input, now time.Time) (*domain.ContactMessage, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !ValidEmail(email) {
		return nil, &domain.ValidationError{Field: "email", Message: "invalid email format"}
	}

	msg := &domain.ContactMessage{
		ID:        domain.NewContactMessageID(),
		Name:      Sanitize(in.Name),
		Email:     email,
		Subject:   Sanitize(in.Subject),
		Message:   Sanitize(in.Message),
		CreatedAt: now,
	}

	switch {
	case len([]rune(msg.Name)) < 2:
		return nil, &domain.ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	case len([]rune(msg.Subject)) < 3:
		return nil, &domain.ValidationError{Field: "subject", Message: "subject must be at least 3 characters"}
	case len([]rune(msg.Message)) < 10:
		return nil, &domain.ValidationError{Field: "message", Message: "message must be at least 10 characters"}
	}

	return msg, nil
}
