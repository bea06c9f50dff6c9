package worker

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/julianpistorius/abaco/channels"
)

// CommandHandler processes one desired-state command. Returning an error
// leaves the delivery unacked so the broker redelivers it (at-least-once).
type CommandHandler func(ctx context.Context, cmd channels.Command) error

// Consumer is the supervisor-side loop over the command channel. The
// control plane never runs it; it is embedded by the supervisor binary
// that owns the container runtime.
type Consumer struct {
	channels *channels.Service
	handler  CommandHandler
	logger   *logrus.Entry
}

// NewConsumer creates a command-channel consumer.
func NewConsumer(ch *channels.Service, handler CommandHandler, logger *logrus.Entry) *Consumer {
	return &Consumer{channels: ch, handler: handler, logger: logger}
}

// Run consumes commands until the context is cancelled or the delivery
// stream closes. Malformed bodies are acked and dropped; handler failures
// are left for redelivery.
func (c *Consumer) Run(ctx context.Context, consumerTag string) error {
	deliveries, err := c.channels.CommandChannel().Consume(consumerTag)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			var cmd channels.Command
			if err := json.Unmarshal(d.Body, &cmd); err != nil {
				c.logger.WithError(err).Error("dropping malformed command")
				_ = d.Ack()
				continue
			}
			if err := c.handler(ctx, cmd); err != nil {
				c.logger.WithError(err).WithField("actor", cmd.ActorID).
					Error("command handler failed; leaving for redelivery")
				continue
			}
			if err := d.Ack(); err != nil {
				c.logger.WithError(err).Warn("failed to ack command")
			}
		}
	}
}
