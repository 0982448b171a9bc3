package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// OutboxSize is how many messages are kept while the broker is unreachable.
const OutboxSize = 256

const clientIDPrefix = "dio-controller"

// ClientID derives a stable client id from the machine id, so two
// controllers on one broker do not evict each other.
func ClientID() string {
	id, err := machineid.ProtectedID(clientIDPrefix)
	if err != nil {
		log.Printf("mqtt: machine id unavailable, using fixed client id: %v", err)
		return clientIDPrefix
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return clientIDPrefix + "-" + id
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while disconnected are queued and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	outbox    *outbox
	connected bool
	sessions  int
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{outbox: newOutbox(OutboxSize)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(ClientID()).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, WillPayload(), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.sessions++
	reconnected := p.sessions > 1
	p.mu.Unlock()

	p.replay(c)

	if reconnected {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(TopicSystem, 1, true, payload)
	}
}

// replayClient is the part of paho.Client used to flush the outbox.
type replayClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// replay flushes the outbox oldest first. Messages published meanwhile
// keep queueing behind it; connected is set only once the outbox is
// empty, under the same lock, so nothing overtakes a queued message.
func (p *RealPublisher) replay(c replayClient) {
	for {
		p.mu.Lock()
		msgs, dropped := p.outbox.take()
		if len(msgs) == 0 {
			p.connected = true
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		log.Printf("mqtt: connected, replaying %d queued messages (%d dropped)", len(msgs), dropped)
		for _, m := range msgs {
			c.Publish(m.topic, m.qos, m.retained, m.payload)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	log.Printf("mqtt: connection lost: %v", err)
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.connected {
		p.outbox.add(queued{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends an edge event to the MQTT broker.
func (p *RealPublisher) Publish(event EdgeEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(Topic, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) so shutdown events are delivered
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
