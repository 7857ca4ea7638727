package publisher

import (
	"context"

	"github.com/ryosukesatoh/programme-feed/internal/mailout"
)

// Publisher publishes a mailout to some output destination.
type Publisher interface {
	Publish(ctx context.Context, m *mailout.Mailout) error
}
