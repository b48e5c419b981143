package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// FilterSubject returns the subject filter for a network, or for every
// network when network is empty.
func FilterSubject(network string) string {
	if network == "" {
		return StreamSubjects
	}
	return SubjectPrefix + "." + network + ".*"
}

// Subscribe streams confirmation events from the CONFIRMATIONS stream to
// handler until ctx is cancelled. Only events published after the call are
// delivered. Messages that fail to decode are logged and acknowledged.
func Subscribe(ctx context.Context, natsURL, network string, logger *slog.Logger, handler func(*ConfirmationEvent) error) error {
	nc, js, err := Connect(natsURL, "assetxfer-subscriber")
	if err != nil {
		return err
	}
	defer nc.Close()

	cons, err := js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: FilterSubject(network),
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	errCh := make(chan error, 1)
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		event, err := decodeEvent(msg.Data())
		if err != nil {
			logger.Warn("failed to decode confirmation event", "subject", msg.Subject(), "error", err)
			_ = msg.Ack()
			return
		}
		if err := handler(event); err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func decodeEvent(data []byte) (*ConfirmationEvent, error) {
	var event ConfirmationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal confirmation event: %w", err)
	}
	return &event, nil
}
