package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dead-letter support is a documented enhancement over the baseline
// discard-on-parse-failure policy: when enabled, rejected messages land in
// a parking queue for inspection instead of vanishing.

// DeadLetterArgs returns the queue arguments that route rejections to the
// given dead-letter exchange.
func DeadLetterArgs(exchange string) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange": exchange,
	}
}

// DeclareDeadLetterTopology declares the dead-letter exchange and its
// parking queue, bound to catch every dead-lettered routing key.
func DeclareDeadLetterTopology(ch Channel, cfg DeadLetterConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange %s failed: %w", cfg.Exchange, err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue %s failed: %w", cfg.Queue, err)
	}

	// "#" matches every routing key, so the original key survives into
	// the parking queue for diagnosis.
	if err := ch.QueueBind(cfg.Queue, "#", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue failed: %w", err)
	}

	return nil
}
