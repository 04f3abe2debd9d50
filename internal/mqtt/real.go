package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/door-controller/internal/logic"
)

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 100

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Encoding   Encoding
	BufferSize int

	// OnCommand, if set, receives valid commands from TopicCommand.
	OnCommand func(Command)
	// Light, if set, is updated from TopicLight.
	Light *LightSensor
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	opts   Options

	mu     sync.Mutex
	buffer *ringBuffer
	// first connect does not announce RECONNECTED
	connectedOnce bool
}

// NewRealPublisher creates a publisher connected to the given broker.
// The connection is retried in the background, so a broker that is down at
// startup is not fatal.
func NewRealPublisher(o Options) *RealPublisher {
	if o.ClientID == "" {
		o.ClientID = "door-controller"
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	p := &RealPublisher{
		opts:   o,
		buffer: newRingBuffer(o.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	log.Printf("mqtt: connected to %s", p.opts.Broker)

	if p.opts.OnCommand != nil {
		c.Subscribe(TopicCommand, 1, func(_ paho.Client, m paho.Message) {
			cmd, err := ParseCommand(m.Payload())
			if err != nil {
				log.Printf("mqtt: ignoring command: %v", err)
				return
			}
			p.opts.OnCommand(cmd)
		})
	}
	if p.opts.Light != nil {
		c.Subscribe(TopicLight, 0, func(_ paho.Client, m paho.Message) {
			if err := p.opts.Light.Update(m.Payload()); err != nil {
				log.Printf("mqtt: %v", err)
			}
		})
	}

	p.mu.Lock()
	pending := p.buffer.drainAll()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	p.mu.Unlock()

	// Replay outside the lock; a failed replay goes back into the buffer.
	for _, m := range pending {
		if err := p.send(m); err != nil {
			p.enqueue(m)
		}
	}
	if reconnect {
		ev := SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}
		if err := p.PublishSystem(ev); err != nil {
			log.Printf("mqtt: publish reconnected: %v", err)
		}
	}
}

// Publish sends a controller activity to the MQTT broker.
func (p *RealPublisher) Publish(a logic.Activity) error {
	payload, err := FormatPayload(a, p.opts.Encoding)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: access events should not be lost once the broker has them.
	return p.publish(bufferedMsg{topic: Topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.enqueue(m)
		return nil
	}
	if err := p.send(m); err != nil {
		p.enqueue(m)
		return err
	}
	return nil
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

func (p *RealPublisher) enqueue(m bufferedMsg) {
	p.mu.Lock()
	p.buffer.push(m)
	p.mu.Unlock()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
