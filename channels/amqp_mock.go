package channels

import (
	"sync"

	"github.com/streadway/amqp"
)

// MockAMQPConnection is a mock implementation of AMQPConnection for testing.
type MockAMQPConnection struct {
	MockChannel AMQPChannel
	ChannelErr  error
	CloseErr    error

	ChannelCalled bool
	CloseCalled   bool
}

func (m *MockAMQPConnection) Channel() (AMQPChannel, error) {
	m.ChannelCalled = true
	if m.ChannelErr != nil {
		return nil, m.ChannelErr
	}
	return m.MockChannel, nil
}

func (m *MockAMQPConnection) Close() error {
	m.CloseCalled = true
	return m.CloseErr
}

// MockAMQPChannel is a mock implementation of AMQPChannel that records
// declarations and keeps published messages per queue so tests can assert
// on queue contents and depths.
type MockAMQPChannel struct {
	mu sync.Mutex

	// Queues maps queue name -> published message bodies, in order
	Queues map[string][]amqp.Publishing

	// PublishedKeys records routing keys in publish order
	PublishedKeys []string

	QueueDeclareErr error
	PublishErr      error
	InspectErr      error
	CloseErr        error

	DeclaredQueues []string
	CloseCalled    bool
}

// NewMockAMQPChannel returns an empty mock channel.
func NewMockAMQPChannel() *MockAMQPChannel {
	return &MockAMQPChannel{Queues: make(map[string][]amqp.Publishing)}
}

func (m *MockAMQPChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueueDeclareErr != nil {
		return amqp.Queue{}, m.QueueDeclareErr
	}
	m.DeclaredQueues = append(m.DeclaredQueues, name)
	return amqp.Queue{Name: name, Messages: len(m.Queues[name])}, nil
}

func (m *MockAMQPChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Queues[key] = append(m.Queues[key], msg)
	m.PublishedKeys = append(m.PublishedKeys, key)
	return nil
}

func (m *MockAMQPChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(chan amqp.Delivery, len(m.Queues[queue]))
	for _, msg := range m.Queues[queue] {
		out <- amqp.Delivery{Body: msg.Body, Acknowledger: &mockAcknowledger{}}
	}
	close(out)
	return out, nil
}

// mockAcknowledger provides a mock implementation of AMQP acknowledger for testing.
type mockAcknowledger struct{}

func (m *mockAcknowledger) Ack(tag uint64, multiple bool) error           { return nil }
func (m *mockAcknowledger) Nack(tag uint64, multiple, requeue bool) error { return nil }
func (m *mockAcknowledger) Reject(tag uint64, requeue bool) error         { return nil }

func (m *MockAMQPChannel) QueueInspect(name string) (amqp.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InspectErr != nil {
		return amqp.Queue{}, m.InspectErr
	}
	return amqp.Queue{Name: name, Messages: len(m.Queues[name])}, nil
}

func (m *MockAMQPChannel) Close() error {
	m.CloseCalled = true
	return m.CloseErr
}

// Messages returns the bodies published to one queue, in order.
func (m *MockAMQPChannel) Messages(queue string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.Queues[queue]))
	for _, msg := range m.Queues[queue] {
		out = append(out, msg.Body)
	}
	return out
}

// MockAMQPDialer is a mock implementation of AMQPDialer for testing.
type MockAMQPDialer struct {
	MockConnection AMQPConnection
	DialErr        error

	DialCalled bool
	LastURL    string
}

func (m *MockAMQPDialer) Dial(url string) (AMQPConnection, error) {
	m.DialCalled = true
	m.LastURL = url
	if m.DialErr != nil {
		return nil, m.DialErr
	}
	return m.MockConnection, nil
}

// NewMockService wires a Service to a fresh mock broker and returns both,
// for tests that assert on published traffic.
func NewMockService() (*Service, *MockAMQPChannel) {
	ch := NewMockAMQPChannel()
	dialer := &MockAMQPDialer{MockConnection: &MockAMQPConnection{MockChannel: ch}}
	svc, err := NewServiceWithDialer("amqp://mock", dialer)
	if err != nil {
		// mock dialer cannot fail here
		panic(err)
	}
	return svc, ch
}
