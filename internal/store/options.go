package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/nhle/studytrack/internal/model"
)

// Option configures a store.
type Option func(*options)

type options struct {
	now      func() time.Time
	newID    func() string
	notifier Notifier
}

func defaultOptions() options {
	return options{
		now:      time.Now,
		newID:    uuid.NewString,
		notifier: discard{},
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the generator of local identifiers. Task
// stores prefix generated values with model.ProvisionalPrefix.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithNotifier sets the receiver of action outcome notifications.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// Notifier receives a notification for every user-visible action outcome.
type Notifier interface {
	Notify(n model.Notification)
}

type discard struct{}

func (discard) Notify(model.Notification) {}
