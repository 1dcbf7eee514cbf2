package broadcast

import (
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/seatrack/n2krouter/pgn"
)

const mqttConnectTimeout = 5 * time.Second

// MQTT publishes the same envelope as the UDP fan-out to a broker topic.
// Publishing is fire-and-forget at QoS 0.
type MQTT struct {
	client   mqtt.Client
	topic    string
	failures atomic.Uint64
	logf     func(format string, a ...any)
}

func NewMQTT(broker, clientID, topic string, logf func(format string, a ...any)) (*MQTT, error) {
	if logf == nil {
		logf = func(format string, a ...any) {}
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logf("broadcast: MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %v", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("could not connect to MQTT broker %v: %w", broker, err)
	}
	return &MQTT{client: client, topic: topic, logf: logf}, nil
}

func (m *MQTT) Send(msg pgn.Message) {
	if !m.client.IsConnected() {
		m.failures.Add(1)
		return
	}
	b, err := marshalEnvelope(msg)
	if err != nil {
		m.failures.Add(1)
		return
	}
	m.client.Publish(m.topic, 0, false, b)
}

// Failures returns the number of messages dropped while disconnected or
// because they could not be encoded.
func (m *MQTT) Failures() uint64 {
	return m.failures.Load()
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
