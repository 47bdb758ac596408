package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

var _ Mailer = (*sendgridMailer)(nil)

// NewSendgrid builds a Mailer on the SendGrid v3 API.
func NewSendgrid(apiKey, fromName, fromAddr string) Mailer {
	return &sendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromAddr),
	}
}

func (m *sendgridMailer) Send(ctx context.Context, msg Message) error {
	html := msg.HTML
	if html == "" {
		html = msg.Text
	}
	sg := sgmail.NewSingleEmail(m.from, msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.ToAddr), msg.Text, html)
	resp, err := m.client.SendWithContext(ctx, sg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
