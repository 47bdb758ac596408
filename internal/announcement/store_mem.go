package announcement

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu         sync.RWMutex
	items      map[string]Announcement
	recipients map[string]map[string]Recipient // announcementID -> userID -> row
}

// NewInMemoryStore is used by tests and offline demos.
func NewInMemoryStore() Store {
	return &memoryStore{
		items:      map[string]Announcement{},
		recipients: map[string]map[string]Recipient{},
	}
}

func (m *memoryStore) Put(_ context.Context, a Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = a
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Announcement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return Announcement{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	delete(m.recipients, id)
	return nil
}

func (m *memoryStore) ListByAuthor(_ context.Context, authorID string) ([]Announcement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Announcement{}
	for _, a := range m.items {
		if a.AuthorID == authorID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) ListForRecipient(_ context.Context, userID string) ([]Announcement, []Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	anns := []Announcement{}
	recs := []Recipient{}
	for id, users := range m.recipients {
		r, ok := users[userID]
		if !ok {
			continue
		}
		a := m.items[id]
		if a.Status != StatusPublished {
			continue
		}
		anns = append(anns, a)
		recs = append(recs, r)
	}
	sort.SliceStable(anns, func(i, j int) bool { return anns[i].CreatedAt.After(anns[j].CreatedAt) })
	return anns, recs, nil
}

func (m *memoryStore) AddRecipients(_ context.Context, announcementID string, targets []Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.recipients[announcementID]
	if !ok {
		users = map[string]Recipient{}
		m.recipients[announcementID] = users
	}
	for _, t := range targets {
		if _, exists := users[t.UserID]; !exists {
			users[t.UserID] = Recipient{AnnouncementID: announcementID, UserID: t.UserID, Email: t.Email}
		}
	}
	return nil
}

func (m *memoryStore) MarkRead(_ context.Context, announcementID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.recipients[announcementID]
	if !ok {
		return ErrNotRecipient
	}
	r, ok := users[userID]
	if !ok {
		return ErrNotRecipient
	}
	if r.ReadAt == nil {
		now := time.Now().UTC()
		r.ReadAt = &now
		users[userID] = r
	}
	return nil
}

func (m *memoryStore) ListRecipients(_ context.Context, announcementID string) ([]Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Recipient{}
	for _, r := range m.recipients[announcementID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
