// Package mailer delivers transactional email rendered from embedded
// templates.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
)

const (
	TemplateForgotPassword       = "forgot-password"
	TemplatePasswordResetSuccess = "password-reset-success"
)

var ErrUnknownTemplate = errors.New("unknown email template")

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is one outgoing email. Data feeds the named template.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Render executes the message template into HTML.
func Render(msg Message) (string, error) {
	t := templates.Lookup(msg.Template + ".html")
	if t == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, msg.Template)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, msg.Data); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}
