package announcement

import "time"

// Status values (wire contract).
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Priority values.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type Announcement struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"authorId"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Audience    []string   `json:"audience"` // target roles: student/teacher/parent
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Recipient is one user's read-receipt row for an announcement.
type Recipient struct {
	AnnouncementID string     `json:"announcementId"`
	UserID         string     `json:"userId"`
	Email          string     `json:"email,omitempty"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

// Target is a user resolved from the audience roles at publish time.
type Target struct {
	UserID string
	Name   string
	Email  string
}
