package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event records one admission denial.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Rule      string    `json:"rule,omitempty"`
	Role      string    `json:"role"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	RequestID string    `json:"requestId,omitempty"`
	DryRun    bool      `json:"dryRun"`
}

type Sink interface {
	Emit(ctx context.Context, event Event) error
}

type NopSink struct{}

func (NopSink) Emit(context.Context, Event) error { return nil }

// StreamSink appends events to a capped Redis stream.
type StreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

func NewStreamSink(client redis.UniversalClient, stream string, maxLen int64) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Emit(ctx context.Context, event Event) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: event.Values(),
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Trim caps the stream length; used by the maintenance job.
func (s *StreamSink) Trim(ctx context.Context) (int64, error) {
	if s.maxLen <= 0 {
		return 0, nil
	}
	return s.client.XTrimMaxLenApprox(ctx, s.stream, s.maxLen, 0).Result()
}

func (e Event) Values() map[string]any {
	return map[string]any{
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
		"reason":     e.Reason,
		"rule":       e.Rule,
		"role":       e.Role,
		"ip":         e.IP,
		"user_agent": e.UserAgent,
		"method":     e.Method,
		"path":       e.Path,
		"request_id": e.RequestID,
		"dry_run":    strconv.FormatBool(e.DryRun),
	}
}

// FromMessage rebuilds an event read back from the stream.
func FromMessage(msg redis.XMessage) (Event, error) {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}

	ts, err := time.Parse(time.RFC3339Nano, str("timestamp"))
	if err != nil {
		return Event{}, fmt.Errorf("parse timestamp: %w", err)
	}
	reason := str("reason")
	if reason == "" {
		return Event{}, fmt.Errorf("message %s has no reason", msg.ID)
	}
	dryRun, _ := strconv.ParseBool(str("dry_run"))

	return Event{
		ID:        msg.ID,
		Timestamp: ts,
		Reason:    reason,
		Rule:      str("rule"),
		Role:      str("role"),
		IP:        str("ip"),
		UserAgent: str("user_agent"),
		Method:    str("method"),
		Path:      str("path"),
		RequestID: str("request_id"),
		DryRun:    dryRun,
	}, nil
}
