package mqttbus

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/portier-acs/portier/server/internal/metrics"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

type ClientConfig struct {
	BrokerURL   string // e.g. "tcp://localhost:1883"
	TopicPrefix string // defaults to DefaultTopicPrefix

	// Location is the zone the scanner clocks report wall time in.
	// Defaults to time.Local.
	Location *time.Location

	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// Client is the broker-facing side of the pipeline: it subscribes to the
// fleet's scan topics and publishes decisions.  It implements
// service.DecisionPublisher.
type Client struct {
	cli     mqtt.Client
	prefix  string
	loc     *time.Location
	logger  *log.Logger
	metrics *metrics.Metrics
}

// Connect dials the broker and blocks until the session is up.
func Connect(cfg ClientConfig) (*Client, error) {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID("portier-server-" + uuid.NewString()[:8]).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	cli := mqtt.NewClient(opts)
	if tok := cli.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.BrokerURL, tok.Error())
	}

	return &Client{
		cli:     cli,
		prefix:  cfg.TopicPrefix,
		loc:     cfg.Location,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// SubscribeScans subscribes to every scanner's scan topic and feeds parsed
// messages to dispatch.  Malformed topics or payloads are dropped with a
// logged warning; the callback itself never panics the paho router.
func (c *Client) SubscribeScans(dispatch func(types.ScanMessage)) error {
	filter := ScanTopicFilter(c.prefix)

	tok := c.cli.Subscribe(filter, 1, func(_ mqtt.Client, m mqtt.Message) {
		scannerUID, err := ParseScanTopic(c.prefix, m.Topic())
		if err != nil {
			c.logger.Printf("scan dropped: %v", err)
			c.metrics.DroppedMessages.WithLabelValues("bad_payload").Inc()
			return
		}

		at, tagUID, err := ParseScanPayload(m.Payload(), c.loc)
		if err != nil {
			c.logger.Printf("scan dropped: scanner %q: %v", scannerUID, err)
			c.metrics.DroppedMessages.WithLabelValues("bad_payload").Inc()
			return
		}

		dispatch(types.ScanMessage{
			ScannerUID: scannerUID,
			TagUID:     tagUID,
			ScannedAt:  at,
		})
	})

	if tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", filter, tok.Error())
	}
	c.logger.Printf("subscribed to %s", filter)
	return nil
}

// PublishDecision sends the literal decision string to the scanner's
// command topic at QoS 1.
func (c *Client) PublishDecision(ctx context.Context, scannerUID string, d types.Decision) error {
	tok := c.cli.Publish(CommandTopic(c.prefix, scannerUID), 1, false, []byte(d))

	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt publish decision to %s: %w", scannerUID, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker, allowing a short drain for in-flight
// publishes.
func (c *Client) Close() {
	c.cli.Disconnect(250)
}
