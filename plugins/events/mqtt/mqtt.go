// Package mqtt forwards bus events to an MQTT broker as JSON.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/veesix-networks/netbridge/pkg/component"
	"github.com/veesix-networks/netbridge/pkg/config/system"
	"github.com/veesix-networks/netbridge/pkg/events"
	"github.com/veesix-networks/netbridge/pkg/logger"
)

const Namespace = "events.mqtt"

const publishTimeout = 5 * time.Second

func init() {
	component.Register(Namespace, New)
}

// publisher is the part of paho.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type Component struct {
	*component.Base
	cfg    system.MQTTConfig
	bus    events.Bus
	logger *slog.Logger
	dialer *net.Dialer
	sub    events.Subscription

	mu      sync.Mutex
	client  publisher
	connect func() (publisher, error)
}

func New(deps component.Dependencies) (component.Component, error) {
	if deps.Config == nil || !deps.Config.MQTT.Enabled {
		return nil, nil
	}
	if deps.EventBus == nil {
		return nil, fmt.Errorf("%s: no event bus", Namespace)
	}
	return newComponent(deps.Config.MQTT, deps.EventBus, deps.Dialer), nil
}

func newComponent(cfg system.MQTTConfig, bus events.Bus, dialer *net.Dialer) *Component {
	c := &Component{
		Base:   component.NewBase(Namespace),
		cfg:    cfg,
		bus:    bus,
		logger: logger.Get(logger.MQTT),
		dialer: dialer,
	}
	c.connect = c.dial
	return c
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting MQTT event sink", "brokers", strings.Join(c.cfg.Brokers, ","), "topic", c.cfg.Topic)
	c.sub = c.bus.SubscribeAll(c.forward)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping MQTT event sink")
	if c.sub != nil {
		c.sub.Unsubscribe()
	}

	c.mu.Lock()
	if c.client != nil {
		c.client.Disconnect(250)
		c.client = nil
	}
	c.mu.Unlock()

	c.StopContext()
	return nil
}

func (c *Component) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	for _, b := range c.cfg.Brokers {
		opts.AddBroker(b)
	}
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
	}
	if c.cfg.Password != "" {
		opts.SetPassword(c.cfg.Password)
	}
	opts.SetClientID(c.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(publishTimeout)
	if c.dialer != nil {
		opts.SetDialer(c.dialer)
	}
	return opts
}

// dial connects on first use. paho reconnects on its own after that.
func (c *Component) dial() (publisher, error) {
	cli := paho.NewClient(c.clientOptions())
	c.logger.Debug("Connecting to MQTT brokers", "brokers", strings.Join(c.cfg.Brokers, ", "))
	if token := cli.Connect(); token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return nil, token.Error()
	}
	c.logger.Info("Connected to MQTT brokers", "brokers", strings.Join(c.cfg.Brokers, ", "))
	return cli, nil
}

func (c *Component) getClient() (publisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		cli, err := c.connect()
		if err != nil {
			return nil, err
		}
		c.client = cli
	}
	return c.client, nil
}

// topicFor maps "netbridge:events:lease" under the configured base topic,
// giving "netbridge/events/lease" with the default.
func (c *Component) topicFor(eventType string) string {
	name := eventType
	if i := strings.LastIndex(eventType, ":"); i >= 0 {
		name = eventType[i+1:]
	}
	return strings.TrimSuffix(c.cfg.Topic, "/") + "/" + name
}

func (c *Component) forward(ev events.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	cli, err := c.getClient()
	if err != nil {
		c.logger.Error("Failed to get MQTT connection", "error", err)
		return
	}

	topic := c.topicFor(ev.Type)
	token := cli.Publish(topic, byte(c.cfg.QoS), false, payload)
	if !token.WaitTimeout(publishTimeout) {
		c.logger.Warn("MQTT publish timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		c.logger.Error("Failed to publish MQTT message", "topic", topic, "error", err)
		return
	}
	c.logger.Debug("Published MQTT message", "topic", topic, "id", ev.ID)
}
