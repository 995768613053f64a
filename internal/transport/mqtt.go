package transport

import "context"

// Publisher is the part of the MQTT client the transport uses.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error
	QoS() byte
	HealthCheck(ctx context.Context) error
	Close() error
}

// MQTT publishes each batch as one message on a fixed topic.
type MQTT struct {
	client Publisher
	topic  string
}

// NewMQTT wraps a connected client. Close disconnects it.
func NewMQTT(client Publisher, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

// Write implements Transport.
func (t *MQTT) Write(ctx context.Context, payload []byte) error {
	return t.client.Publish(ctx, t.topic, payload, t.client.QoS(), false)
}

// HealthCheck reports whether the broker connection is up.
func (t *MQTT) HealthCheck(ctx context.Context) error {
	return t.client.HealthCheck(ctx)
}

// Close implements Transport.
func (t *MQTT) Close() error {
	return t.client.Close()
}
