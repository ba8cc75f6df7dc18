package mailer

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// LogMailer renders messages and writes them to the log instead of sending.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(l logging.Logger) *LogMailer {
	return &LogMailer{log: l.With("module", "log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	html, err := Render(msg)
	if err != nil {
		return err
	}
	m.log.Info(ctx, "email", "to", msg.To, "subject", msg.Subject, "template", msg.Template, "html", html)
	return nil
}
