package announcement

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/schoolconnect/schoolconnect-api/internal/events"
	"github.com/schoolconnect/schoolconnect-api/internal/mail"
)

// Service owns the announcement lifecycle and the email fan-out on
// publish.
type Service struct {
	store     Store
	directory Directory
	mailer    mail.Mailer
	events    events.Log

	batchSize int
	batchWait time.Duration
	async     bool

	logf func(format string, args ...interface{})
	now  func() time.Time
}

type Option func(*Service)

// WithBatch overrides fan-out batch size and inter-batch pause.
func WithBatch(size int, wait time.Duration) Option {
	return func(s *Service) {
		s.batchSize = size
		s.batchWait = wait
	}
}

// WithSynchronousFanOut makes Publish wait for the fan-out. Tests use it.
func WithSynchronousFanOut() Option {
	return func(s *Service) { s.async = false }
}

func NewService(store Store, directory Directory, mailer mail.Mailer, evlog events.Log, opts ...Option) *Service {
	if evlog == nil {
		evlog = events.Nop{}
	}
	s := &Service{
		store:     store,
		directory: directory,
		mailer:    mailer,
		events:    evlog,
		batchSize: 50,
		batchWait: time.Second,
		async:     true,
		logf:      log.Printf,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, authorID string, a Announcement) (Announcement, error) {
	a.ID = uuid.NewString()
	a.AuthorID = authorID
	a.Status = StatusDraft
	if a.Priority == "" {
		a.Priority = PriorityNormal
	}
	a.CreatedAt = s.now().UTC()
	a.PublishedAt = nil
	if err := s.store.Put(ctx, a); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (Announcement, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]Announcement, error) {
	return s.store.ListByAuthor(ctx, authorID)
}

func (s *Service) ListForRecipient(ctx context.Context, userID string) ([]Announcement, []Recipient, error) {
	return s.store.ListForRecipient(ctx, userID)
}

func (s *Service) Recipients(ctx context.Context, id string) ([]Recipient, error) {
	return s.store.ListRecipients(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id, authorID string) error {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.AuthorID != authorID {
		return ErrNotOwner
	}
	return s.store.Delete(ctx, id)
}

// Publish flips the announcement live, materializes a read-receipt row per
// targeted user and fans out email. Email is fire-and-forget: per-recipient
// failures are logged, never surfaced, and publish has already succeeded by
// the time any mail moves.
func (s *Service) Publish(ctx context.Context, id, authorID string) (Announcement, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if a.AuthorID != authorID {
		return Announcement{}, ErrNotOwner
	}
	if a.Status == StatusPublished {
		return Announcement{}, ErrAlreadyPublished
	}
	now := s.now().UTC()
	a.Status = StatusPublished
	a.PublishedAt = &now
	if err := s.store.Put(ctx, a); err != nil {
		return Announcement{}, err
	}

	targets, err := s.directory.UsersByRoles(ctx, a.Audience)
	if err != nil {
		// Recipients can be backfilled; the announcement is live regardless.
		s.logf("audience lookup failed for announcement %s: %v", a.ID, err)
		targets = nil
	}
	if len(targets) > 0 {
		if err := s.store.AddRecipients(ctx, a.ID, targets); err != nil {
			s.logf("recipient materialization failed for announcement %s: %v", a.ID, err)
		}
	}

	if err := s.events.Append(ctx, events.TypeAnnouncementPublished, a.ID, map[string]interface{}{
		"authorId":   authorID,
		"recipients": len(targets),
	}); err != nil {
		s.logf("event append failed for announcement %s: %v", a.ID, err)
	}

	if s.async {
		go s.fanOut(context.Background(), a, targets)
	} else {
		s.fanOut(ctx, a, targets)
	}
	return a, nil
}

// MarkRead records the caller's read receipt. Idempotent.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.MarkRead(ctx, id, userID)
}

// fanOut sends the announcement email in batches with a pause between
// batches, so a big school does not burst the provider. Individual
// failures are logged and skipped.
func (s *Service) fanOut(ctx context.Context, a Announcement, targets []Target) {
	subject := fmt.Sprintf("[%s] %s", priorityTag(a.Priority), a.Title)
	for start := 0; start < len(targets); start += s.batchSize {
		end := start + s.batchSize
		if end > len(targets) {
			end = len(targets)
		}
		var g errgroup.Group
		for _, t := range targets[start:end] {
			t := t
			if t.Email == "" {
				continue
			}
			g.Go(func() error {
				err := s.mailer.Send(ctx, mail.Message{
					ToName:  t.Name,
					ToAddr:  t.Email,
					Subject: subject,
					Text:    a.Content,
				})
				if err != nil {
					s.logf("announcement %s: send to %s failed: %v", a.ID, t.Email, err)
				}
				return nil // failures never abort the batch
			})
		}
		_ = g.Wait()
		if end < len(targets) {
			time.Sleep(s.batchWait)
		}
	}
}

func priorityTag(p string) string {
	switch p {
	case PriorityUrgent:
		return "URGENT"
	case PriorityHigh:
		return "Important"
	default:
		return "Announcement"
	}
}
