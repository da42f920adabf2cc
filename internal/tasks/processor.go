package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"authgate/api/internal/audit"
)

type ObjectWriter interface {
	PutJSON(ctx context.Context, key string, v any) error
}

// Archiver copies denial events from the audit stream into object storage,
// one JSON document per event.
type Archiver struct {
	store  ObjectWriter
	logger zerolog.Logger
}

func NewArchiver(store ObjectWriter, logger zerolog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		logger: logger,
	}
}

// Handle returns nil for undecodable messages so the consumer acks them
// instead of reclaiming them forever.
func (a *Archiver) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := audit.FromMessage(msg)
	if err != nil {
		a.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed audit message")
		return nil
	}

	key := ObjectKey(event)
	if err := a.store.PutJSON(ctx, key, event); err != nil {
		return fmt.Errorf("archive %s: %w", msg.ID, err)
	}

	a.logger.Debug().
		Str("message_id", msg.ID).
		Str("reason", event.Reason).
		Str("ip", event.IP).
		Str("key", key).
		Msg("denial archived")
	return nil
}

// ObjectKey partitions archives by UTC day of the denial.
func ObjectKey(event audit.Event) string {
	return fmt.Sprintf("denials/%s/%s.json", event.Timestamp.UTC().Format("2006/01/02"), event.ID)
}
