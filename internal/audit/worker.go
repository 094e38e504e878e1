package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and forwards them to a sink.
// Emission stays off the request path; a sink failure is logged and dropped
// rather than failing the operation that produced the event.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action, "entity_id", event.EntityID, "error", err)
			}
		}
	}
}

// ChannelSink bridges a Publisher to a Worker: Append enqueues, the worker
// drains. Events are dropped when the inbox is full so emitters never block.
type ChannelSink struct {
	inbox chan Event
}

func NewChannelSink(capacity int) *ChannelSink {
	return &ChannelSink{inbox: make(chan Event, capacity)}
}

func (s *ChannelSink) Append(ctx context.Context, event Event) error {
	select {
	case s.inbox <- event:
	default:
	}
	return nil
}

// Inbox exposes the receive side for the worker.
func (s *ChannelSink) Inbox() <-chan Event { return s.inbox }
