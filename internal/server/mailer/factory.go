package mailer

import (
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
)

const (
	ProviderBrevo = "brevo"
	ProviderLog   = "log"
)

// New picks the Mailer named by cfg.MailProvider.
func New(cfg *config.Config, l logging.Logger) (Mailer, error) {
	switch cfg.MailProvider {
	case ProviderBrevo:
		if cfg.MailAPIKey == "" {
			return nil, fmt.Errorf("mail provider %q requires an API key", cfg.MailProvider)
		}
		return NewBrevoMailer(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailSenderEmail, cfg.MailSenderName, cfg.MailTimeout), nil
	case ProviderLog, "":
		return NewLogMailer(l), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}
