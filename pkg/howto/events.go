package howto

import (
	"context"
	"log/slog"
)

// NoopEventSink discards all events.
type NoopEventSink struct{}

func (NoopEventSink) HowtoSubmitted(ctx context.Context, h *Howto) error { return nil }

func (NoopEventSink) HowtoModerated(ctx context.Context, h *Howto, by *User) error { return nil }

func (NoopEventSink) ActiveHowtoChanged(ctx context.Context, h *Howto) error { return nil }

// SlogEventSink logs lifecycle events through a structured logger.
type SlogEventSink struct {
	Log *slog.Logger
}

// NewSlogEventSink creates an event sink over the given logger. A nil
// logger uses slog's default.
func NewSlogEventSink(log *slog.Logger) *SlogEventSink {
	if log == nil {
		log = slog.Default()
	}
	return &SlogEventSink{Log: log}
}

func (s *SlogEventSink) HowtoSubmitted(ctx context.Context, h *Howto) error {
	s.Log.InfoContext(ctx, "howto submitted",
		"id", h.ID,
		"slug", h.Slug,
		"created_by", h.CreatedBy,
		"moderation", string(h.Moderation))
	return nil
}

func (s *SlogEventSink) HowtoModerated(ctx context.Context, h *Howto, by *User) error {
	s.Log.InfoContext(ctx, "howto moderated",
		"id", h.ID,
		"moderation", string(h.Moderation),
		"moderated_by", by.UserName)
	return nil
}

func (s *SlogEventSink) ActiveHowtoChanged(ctx context.Context, h *Howto) error {
	if h == nil {
		s.Log.DebugContext(ctx, "active howto cleared")
		return nil
	}
	s.Log.DebugContext(ctx, "active howto changed", "id", h.ID, "slug", h.Slug)
	return nil
}
