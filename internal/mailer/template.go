package mailer

import (
	"fmt"
	"html"
	"net/mail"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/portfolio-api/internal/domain"
)

// Envelope is a fully rendered message ready for any transport.
type Envelope struct {
	From        string
	To          string
	ReplyTo     string
	ReplyToName string
	Subject     string
	Text        string
	HTML        string
}

// ReplyToHeader formats the Reply-To address with the sender's name.
func (e *Envelope) ReplyToHeader() string {
	return (&mail.Address{Name: e.ReplyToName, Address: e.ReplyTo}).String()
}

const (
	subjectTemplate = `Portfolio Contact from {{ name }}`

	textTemplate = `Name: {{ name }}
Email: {{ email }}
Message: {{ message }}`

	htmlTemplate = `<p><strong>Name:</strong> {{ name | escape }}</p>
<p><strong>Email:</strong> {{ email | escape }}</p>
<p><strong>Message:</strong><br>{{ message | escape | nl2br }}</p>`
)

// Renderer turns a ContactMessage into an Envelope. Templates are parsed
// once; a Renderer is safe for concurrent use.
type Renderer struct {
	subject *liquid.Template
	text    *liquid.Template
	html    *liquid.Template
}

// NewRenderer parses the contact templates.
func NewRenderer() (*Renderer, error) {
	engine := liquid.NewEngine()

	// HTML escape: {{ message | escape }}
	engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
	// Line breaks: {{ message | nl2br }}
	engine.RegisterFilter("nl2br", func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ReplaceAll(s, "\n", "<br>")
	})

	r := &Renderer{}
	for _, t := range []struct {
		dst **liquid.Template
		src string
	}{
		{&r.subject, subjectTemplate},
		{&r.text, textTemplate},
		{&r.html, htmlTemplate},
	} {
		tpl, err := engine.ParseString(t.src)
		if err != nil {
			return nil, fmt.Errorf("parse mail template: %w", err)
		}
		*t.dst = tpl
	}
	return r, nil
}

// Envelope builds the operator-bound envelope for msg. The sender only
// ever appears as Reply-To; From and To are both the operator.
func (r *Renderer) Envelope(operator string, msg domain.ContactMessage) (*Envelope, error) {
	msg = msg.Normalize()
	bindings := liquid.Bindings{
		"name":    msg.Name,
		"email":   msg.Email,
		"message": msg.Message,
	}

	subject, err := r.subject.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	text, err := r.text.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	body, err := r.html.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	return &Envelope{
		From:        operator,
		To:          operator,
		ReplyTo:     msg.Email,
		ReplyToName: headerSafe(msg.Name),
		Subject:     headerSafe(subject),
		Text:        text,
		HTML:        body,
	}, nil
}

// headerSafe collapses CR/LF so user input cannot inject headers.
func headerSafe(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
