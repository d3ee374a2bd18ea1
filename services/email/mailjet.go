package emailsvc

import (
	"context"
	"net/mail"

	"github.com/mailjet/mailjet-apiv3-go"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
)

type mailjetService struct {
	client     *mailjet.Client
	from       mail.Address
	subjPrefix string
}

var _ core.EmailService = (*mailjetService)(nil)

func NewMailjetService(conf *core.Config) core.EmailService {
	return &mailjetService{
		client:     mailjet.NewMailjetClient(conf.Email.MailjetPublicKey, conf.Email.MailjetPrivateKey),
		from:       conf.Email.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc mailjetService) SendMessage(ctx context.Context, msg *core.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Render(); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}

	info := []mailjet.InfoMessagesV31{{
		From:     &mailjet.RecipientV31{Email: svc.from.Address, Name: svc.from.Name},
		To:       recipients(msg.To),
		Cc:       recipients(msg.Cc),
		Bcc:      recipients(msg.Bcc),
		Subject:  svc.subjPrefix + msg.Subject,
		TextPart: msg.TextContent,
		HTMLPart: msg.HTMLContent,
	}}
	msgs := mailjet.MessagesV31{Info: info}
	if _, err := svc.client.SendMailV31(&msgs); err != nil {
		return errors.Wrap(err, "sending email")
	}
	return nil
}

func recipients(addrs []mail.Address) *mailjet.RecipientsV31 {
	if len(addrs) == 0 {
		return nil
	}
	rcpts := make(mailjet.RecipientsV31, 0, len(addrs))
	for _, a := range addrs {
		rcpts = append(rcpts, mailjet.RecipientV31{Email: a.Address, Name: a.Name})
	}
	return &rcpts
}
