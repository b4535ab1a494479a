package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/studytrack/internal/model"
)

const maxRecentNotifications = 50

// Notifications collects action outcomes and broadcasts each one to
// subscribers. It implements Notifier.
type Notifications struct {
	mu     sync.Mutex
	recent []model.Notification
	subs   map[int]chan model.Notification
	next   int
	now    func() time.Time
}

// NewNotifications returns an empty notification hub.
func NewNotifications() *Notifications {
	return &Notifications{
		subs: make(map[int]chan model.Notification),
		now:  time.Now,
	}
}

// Notify records n, filling in ID and CreatedAt when unset, and delivers
// it to every subscriber with room in its buffer.
func (h *Notifications) Notify(n model.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = h.now()
	}

	h.recent = append(h.recent, n)
	if len(h.recent) > maxRecentNotifications {
		h.recent = h.recent[len(h.recent)-maxRecentNotifications:]
	}

	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribe returns a buffered channel of new notifications and a func to
// stop receiving them. Notifications are dropped for a subscriber whose
// buffer is full.
func (h *Notifications) Subscribe() (<-chan model.Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan model.Notification, 16)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Recent returns up to the last 50 notifications, oldest first.
func (h *Notifications) Recent() []model.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Notification(nil), h.recent...)
}

func success(title, message string) model.Notification {
	return model.Notification{Level: model.LevelSuccess, Title: title, Message: message}
}

func failure(message string) model.Notification {
	return model.Notification{Level: model.LevelError, Title: "Error", Message: message}
}
