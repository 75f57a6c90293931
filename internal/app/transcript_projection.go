package app

import (
	"context"
	"log/slog"

	"sealink/internal/bus"
	"sealink/internal/envelope"
	"sealink/internal/events"
	"sealink/internal/persistence"
	"sealink/internal/wire"
)

// TranscriptProjection records link traffic from the bus into the sqlite
// transcript. Writes go through the writer queue so a slow disk never
// stalls the read loop; after every insert the table is trimmed back to
// the configured retention.
type TranscriptProjection struct {
	logger   *slog.Logger
	repo     *persistence.TranscriptRepo
	writer   *persistence.WriterQueue
	keepLast int
}

func NewTranscriptProjection(logger *slog.Logger, repo *persistence.TranscriptRepo, writer *persistence.WriterQueue, keepLast int) *TranscriptProjection {
	if logger == nil {
		logger = slog.Default().With("component", "app.transcript")
	}

	return &TranscriptProjection{
		logger:   logger,
		repo:     repo,
		writer:   writer,
		keepLast: keepLast,
	}
}

// Start subscribes to the traffic topics and records until ctx ends.
func (p *TranscriptProjection) Start(ctx context.Context, messageBus bus.MessageBus) {
	if p == nil || messageBus == nil {
		return
	}

	topics := []string{
		events.TopicResponse,
		events.TopicEnvelope,
		events.TopicRaw,
		events.TopicCommandSent,
	}
	sub := messageBus.Subscribe(topics...)

	go func() {
		defer messageBus.Unsubscribe(sub, topics...)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				p.handle(raw)
			}
		}
	}()
}

func (p *TranscriptProjection) handle(raw any) {
	switch ev := raw.(type) {
	case events.ResponseReceived:
		p.record(persistence.TranscriptEntry{
			Direction: persistence.DirectionReceived,
			Kind:      persistence.KindResponse,
			Status:    ev.Response.Status,
			Body:      ev.Response.Message,
			CreatedAt: ev.Timestamp,
		})
	case events.EnvelopeReceived:
		body, err := envelope.Encode(ev.Envelope)
		if err != nil {
			p.logger.Warn("encode envelope for transcript", "error", err)
			return
		}
		p.record(persistence.TranscriptEntry{
			Direction: persistence.DirectionReceived,
			Kind:      persistence.KindEnvelope,
			Body:      body,
			CreatedAt: ev.Timestamp,
		})
	case events.RawMessage:
		p.record(persistence.TranscriptEntry{
			Direction: persistence.DirectionReceived,
			Kind:      persistence.KindRaw,
			Body:      ev.Line,
			CreatedAt: ev.Timestamp,
		})
	case events.CommandSent:
		body, err := wire.EncodeCommand(wire.Command{Action: ev.Action, Data: ev.Data})
		if err != nil {
			p.logger.Warn("encode command for transcript", "error", err)
			return
		}
		p.record(persistence.TranscriptEntry{
			Direction: persistence.DirectionSent,
			Kind:      persistence.KindCommand,
			Action:    ev.Action,
			Body:      body,
			CreatedAt: ev.Timestamp,
		})
	}
}

func (p *TranscriptProjection) record(entry persistence.TranscriptEntry) {
	p.writer.Enqueue("transcript_insert", func(ctx context.Context) error {
		if err := p.repo.Insert(ctx, entry); err != nil {
			return err
		}
		if _, err := p.repo.TrimToNewest(ctx, p.keepLast); err != nil {
			p.logger.Warn("trim transcript", "error", err)
		}
		return nil
	})
}
