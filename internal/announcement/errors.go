package announcement

import "errors"

var (
	// ErrNotFound is returned when an announcement id resolves to nothing.
	ErrNotFound = errors.New("announcement not found")
	// ErrNotOwner rejects access by anyone but the author.
	ErrNotOwner = errors.New("not the author")
	// ErrAlreadyPublished rejects publishing twice.
	ErrAlreadyPublished = errors.New("announcement already published")
	// ErrNotRecipient rejects read receipts from users outside the audience.
	ErrNotRecipient = errors.New("not a recipient")
)
