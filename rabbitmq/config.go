package rabbitmq

import (
	"fmt"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config configures the broker connection and topology.
type Config struct {
	// URL is the full AMQP URI. When set it wins over the host fields.
	URL string `mapstructure:"url"`

	// Host fields, assembled into a URI when URL is empty.
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`

	// Exchange is the topic exchange events flow through.
	Exchange ExchangeConfig `mapstructure:"exchange"`

	// Supervisor governs process-startup connectivity, independent from
	// per-request retry.
	Supervisor SupervisorConfig `mapstructure:"supervisor"`

	// Consumer holds defaults applied to every consumer.
	Consumer ConsumerDefaults `mapstructure:"consumer"`

	// Publisher configures the shared publisher channel.
	Publisher PublisherConfig `mapstructure:"publisher"`

	// DeadLetter routes rejected messages to a parking queue when enabled.
	// Off by default: the baseline policy is discard-on-parse-failure.
	DeadLetter DeadLetterConfig `mapstructure:"dead_letter"`
}

// ExchangeConfig describes the event exchange.
type ExchangeConfig struct {
	Name    string `mapstructure:"name"`
	Type    string `mapstructure:"type"`
	Durable bool   `mapstructure:"durable"`
}

// SupervisorConfig bounds the startup dial loop: BaseDelay doubling per
// attempt, additive jitter, capped at MaxDelay.
type SupervisorConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Jitter      time.Duration `mapstructure:"jitter"`
}

// ConsumerDefaults apply to consumers that leave the field unset.
type ConsumerDefaults struct {
	// Prefetch is the per-consumer unacked message window.
	Prefetch int `mapstructure:"prefetch"`

	// RequeueOnError redelivers messages whose handler failed for a
	// reason other than a malformed payload. Malformed payloads are
	// always rejected without requeue.
	RequeueOnError bool `mapstructure:"requeue_on_error"`
}

// PublisherConfig controls the publish side.
type PublisherConfig struct {
	// Transient disables disk persistence for published messages. The
	// default marks every message persistent so durable queues keep them
	// across broker restarts.
	Transient bool `mapstructure:"transient"`

	// Mandatory returns unroutable messages to the publisher.
	Mandatory bool `mapstructure:"mandatory"`
}

// DeadLetterConfig describes the optional dead-letter topology.
type DeadLetterConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

// ConsumerConfig configures one consumer: a single durable queue bound to
// the topic exchange under the given routing keys.
type ConsumerConfig struct {
	// Queue is the durable queue name.
	Queue string `mapstructure:"queue"`

	// Bindings are the routing-key patterns bound to the exchange,
	// e.g. "user.*" or "order.created".
	Bindings []string `mapstructure:"bindings"`

	// Prefetch overrides the config default when > 0.
	Prefetch int `mapstructure:"prefetch"`

	// RequeueOnError overrides the config default.
	RequeueOnError bool `mapstructure:"requeue_on_error"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.URL == "" && c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5672
	}
	if c.Username == "" {
		c.Username = "guest"
	}
	if c.Password == "" {
		c.Password = "guest"
	}
	if c.VHost == "" {
		c.VHost = "/"
	}

	if c.Exchange.Name == "" {
		c.Exchange.Name = "events"
	}
	if c.Exchange.Type == "" {
		c.Exchange.Type = "topic"
		c.Exchange.Durable = true
	}

	if c.Supervisor.MaxAttempts == 0 {
		c.Supervisor.MaxAttempts = 10
	}
	if c.Supervisor.BaseDelay == 0 {
		c.Supervisor.BaseDelay = 5 * time.Second
	}
	if c.Supervisor.MaxDelay == 0 {
		c.Supervisor.MaxDelay = 2 * time.Minute
	}
	if c.Supervisor.Jitter == 0 {
		c.Supervisor.Jitter = time.Second
	}

	if c.Consumer.Prefetch == 0 {
		c.Consumer.Prefetch = 16
	}

	if c.DeadLetter.Enabled {
		if c.DeadLetter.Exchange == "" {
			c.DeadLetter.Exchange = c.Exchange.Name + ".dlx"
		}
		if c.DeadLetter.Queue == "" {
			c.DeadLetter.Queue = c.Exchange.Name + ".dead-letter"
		}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.When(c.URL == "", validation.Required)),
		validation.Field(&c.Port, validation.When(c.URL == "", validation.Min(1), validation.Max(65535))),
		validation.Field(&c.Exchange, validation.Required),
		validation.Field(&c.Supervisor),
	)
}

// Validate checks the exchange settings.
func (c ExchangeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Type, validation.Required,
			validation.In("topic", "direct", "fanout", "headers")),
	)
}

// Validate checks the supervisor bounds.
func (c SupervisorConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxAttempts, validation.Min(1)),
		validation.Field(&c.BaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxDelay, validation.Min(c.BaseDelay)),
	)
}

// Validate checks one consumer's settings.
func (c ConsumerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Queue, validation.Required),
		validation.Field(&c.Bindings, validation.Required, validation.Length(1, 0)),
		validation.Field(&c.Prefetch, validation.Min(0)),
	)
}

// AMQPURL returns the broker URI, assembling one from the host fields when
// URL is not set. The password is escaped so special characters survive.
func (c *Config) AMQPURL() string {
	if c.URL != "" {
		return c.URL
	}
	vhost := c.VHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Username), url.QueryEscape(c.Password),
		c.Host, c.Port, vhost)
}

// withDefaults merges the config-level consumer defaults into cfg.
func (c *Config) withDefaults(cfg ConsumerConfig) ConsumerConfig {
	if cfg.Prefetch == 0 {
		cfg.Prefetch = c.Consumer.Prefetch
	}
	if !cfg.RequeueOnError {
		cfg.RequeueOnError = c.Consumer.RequeueOnError
	}
	return cfg
}
