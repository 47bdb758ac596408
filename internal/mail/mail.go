package mail

import "context"

// Message is a single transactional email.
type Message struct {
	ToName  string
	ToAddr  string
	Subject string
	Text    string
	HTML    string
}

// Mailer is any service that can deliver a message. Implementations must
// be safe for concurrent use; fan-out sends within a batch run in
// parallel.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
