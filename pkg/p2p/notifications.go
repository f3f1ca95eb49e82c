package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Change notification subjects and actions.
const (
	SubjectContentItemUpdates = "p2p.updates.content_item"
	SubjectCollectionUpdates  = "p2p.updates.collection"

	// ActionUpdate marks a create or update notification.
	ActionUpdate = "U"

	// ActionDelete marks a delete notification.
	ActionDelete = "D"
)

// Static errors for err113 compliance.
var (
	ErrNotificationHandlerRequired = errors.New("notification handler is required")
)

// Notification is a change event for a content item or collection.
type Notification struct {
	Action string `json:"action"`
	ID     int64  `json:"id"`
	Slug   string `json:"slug,omitempty"`
	Code   string `json:"code,omitempty"`
}

// NotificationHandler is called for every notification received. subject
// is the NATS subject the notification arrived on.
type NotificationHandler func(subject string, notification Notification)

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the listener's logger.
func WithListenerLogger(logger Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// Listener subscribes to content item and collection change notifications.
type Listener struct {
	url     string
	handler NotificationHandler
	logger  Logger
}

// NewListener creates a listener for the given NATS server.
func NewListener(url string, handler NotificationHandler, opts ...ListenerOption) (*Listener, error) {
	if handler == nil {
		return nil, ErrNotificationHandlerRequired
	}

	listener := &Listener{
		url:     url,
		handler: handler,
	}

	for _, opt := range opts {
		opt(listener)
	}

	return listener, nil
}

// Listen connects, subscribes to both update subjects, and dispatches
// notifications to the handler until the context is canceled.
func (l *Listener) Listen(ctx context.Context) error {
	conn, err := nats.Connect(l.url)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer conn.Close()

	msgs := make(chan *nats.Msg, 64)

	for _, subject := range []string{SubjectContentItemUpdates, SubjectCollectionUpdates} {
		sub, err := conn.ChanSubscribe(subject, msgs)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}

		defer func() { _ = sub.Unsubscribe() }()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			var notification Notification

			err := json.Unmarshal(msg.Data, &notification)
			if err != nil {
				if l.logger != nil {
					l.logger.Warn("dropping malformed notification", map[string]interface{}{
						"subject": msg.Subject,
						"error":   err.Error(),
					})
				}

				continue
			}

			l.handler(msg.Subject, notification)
		}
	}
}

// InvalidatingHandler wraps a handler with cache eviction: every
// notification evicts the matching store entries before next runs. next
// may be nil.
func InvalidatingHandler(store *Store, next NotificationHandler) NotificationHandler {
	return func(subject string, notification Notification) {
		ctx := context.Background()

		switch subject {
		case SubjectContentItemUpdates:
			if notification.Slug != "" {
				_ = store.RemoveContentItem(ctx, notification.Slug)
			} else if notification.ID != 0 {
				_ = store.RemoveContentItemByID(ctx, notification.ID)
			}
		case SubjectCollectionUpdates:
			code := notification.Code
			if code == "" {
				code = notification.Slug
			}

			if code != "" {
				_ = store.Remove(ctx, EntityCollection, code)
				_ = store.Remove(ctx, EntityCollectionLayout, code)
			}
		}

		if next != nil {
			next(subject, notification)
		}
	}
}
