package mail

import (
	"context"
	"log"
)

type consoleMailer struct{}

// NewConsole logs messages instead of sending them. Default in dev mode
// when no SendGrid key is configured.
func NewConsole() Mailer { return consoleMailer{} }

func (consoleMailer) Send(_ context.Context, msg Message) error {
	log.Printf("mail (console): to=%s subject=%q", msg.ToAddr, msg.Subject)
	return nil
}
