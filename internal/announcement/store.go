package announcement

import "context"

type Store interface {
	Put(ctx context.Context, a Announcement) error
	Get(ctx context.Context, id string) (Announcement, error)
	Delete(ctx context.Context, id string) error
	ListByAuthor(ctx context.Context, authorID string) ([]Announcement, error)
	// ListForRecipient returns published announcements the user was
	// targeted by, newest first, with the user's read state attached.
	ListForRecipient(ctx context.Context, userID string) ([]Announcement, []Recipient, error)

	AddRecipients(ctx context.Context, announcementID string, targets []Target) error
	// MarkRead sets readAt once; marking an already-read row is a no-op.
	MarkRead(ctx context.Context, announcementID, userID string) error
	ListRecipients(ctx context.Context, announcementID string) ([]Recipient, error)
}

// Directory resolves audience roles to concrete users at publish time.
type Directory interface {
	UsersByRoles(ctx context.Context, roles []string) ([]Target, error)
}
