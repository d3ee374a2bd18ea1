package emailsvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
)

// Backends
const (
	BackendConsole  = "console"
	BackendSendgrid = "sendgrid"
	BackendMailjet  = "mailjet"
)

// New returns the email service configured by conf.Email.Backend.
func New(conf *core.Config) (core.EmailService, error) {
	switch conf.Email.Backend {
	case "", BackendConsole:
		return NewConsoleService(conf), nil
	case BackendSendgrid:
		if conf.Email.SendgridAPIKey == "" {
			return nil, errors.New("sendgrid: missing API key")
		}
		return NewSendgridService(conf), nil
	case BackendMailjet:
		if conf.Email.MailjetPublicKey == "" || conf.Email.MailjetPrivateKey == "" {
			return nil, errors.New("mailjet: missing API keys")
		}
		return NewMailjetService(conf), nil
	default:
		return nil, errors.Errorf("unknown email backend %q", conf.Email.Backend)
	}
}
