package channels

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Queue names. The command queue is a singleton; actor and worker queues
// are derived from their owner's identifier.
const (
	commandQueueName    = "command"
	actorMsgQueuePrefix = "actor_msg_"
	shutdownCommand     = "shutdown"
)

// Command is the desired-state message the control plane publishes for the
// worker supervisor: start num workers with the given ids and image, and
// optionally drain and stop the existing population once they are READY.
type Command struct {
	ActorID      string   `json:"actor_id"`
	WorkerIDs    []string `json:"worker_ids"`
	Image        string   `json:"image"`
	Tenant       string   `json:"tenant"`
	Num          int      `json:"num"`
	StopExisting bool     `json:"stop_existing"`
}

// WorkerCommand is the control message delivered on a worker's private channel.
type WorkerCommand struct {
	Command string `json:"command"`
}

// ActorMessage is the wire form of one inbox entry: the user payload plus
// the metadata map carrying the _abaco_* correlation fields.
type ActorMessage struct {
	Message  json.RawMessage   `json:"message"`
	Metadata map[string]string `json:"d"`
}

// Service owns one broker connection and one publish channel shared by all
// channel handles. Publishes are serialized with a mutex because AMQP
// channels are not safe for concurrent use.
type Service struct {
	conn AMQPConnection
	ch   AMQPChannel

	mu sync.Mutex

	declared   map[string]bool
	declaredMu sync.Mutex
}

// NewService connects to the broker at url.
func NewService(url string) (*Service, error) {
	return NewServiceWithDialer(url, &RealAMQPDialer{})
}

// NewServiceWithDialer connects using an injected dialer, for testing.
func NewServiceWithDialer(url string, dialer AMQPDialer) (*Service, error) {
	conn, err := dialer.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return &Service{
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
	}, nil
}

// Close releases the broker connection and channel.
func (s *Service) Close() error {
	if s.ch != nil {
		s.ch.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

// declare ensures a durable queue exists. Declarations are idempotent on
// the broker; the local cache just avoids repeat round trips on the hot path.
func (s *Service) declare(name string) error {
	s.declaredMu.Lock()
	done := s.declared[name]
	s.declaredMu.Unlock()
	if done {
		return nil
	}
	s.mu.Lock()
	_, err := s.ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	s.declaredMu.Lock()
	s.declared[name] = true
	s.declaredMu.Unlock()
	return nil
}

// publish sends a JSON body to a queue on the default exchange.
func (s *Service) publish(queue string, v interface{}) error {
	if err := s.declare(queue); err != nil {
		return err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ch.Publish(
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		publishing(body),
	); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}

// approxLen reports the broker's view of a queue's depth. Approximate by
// contract; only the messages endpoint uses it.
func (s *Service) approxLen(queue string) (int, error) {
	if err := s.declare(queue); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.ch.QueueInspect(queue)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue %s: %w", queue, err)
	}
	return q.Messages, nil
}

// ActorMsgChannel returns the inbox handle for one actor.
func (s *Service) ActorMsgChannel(actorDBID string) *ActorMsgChannel {
	return &ActorMsgChannel{svc: s, queue: actorMsgQueuePrefix + actorDBID}
}

// CommandChannel returns the singleton desired-state channel handle.
func (s *Service) CommandChannel() *CommandChannel {
	return &CommandChannel{svc: s}
}

// WorkerChannel returns the private control channel handle for one worker.
func (s *Service) WorkerChannel(chName string) *WorkerChannel {
	return &WorkerChannel{svc: s, queue: chName}
}

// ActorMsgChannel is the per-actor inbox of user messages. Producers are
// the HTTP message handlers; consumers are the actor's workers.
type ActorMsgChannel struct {
	svc   *Service
	queue string
}

// PutMsg enqueues one user message with its metadata map.
func (c *ActorMsgChannel) PutMsg(payload MessagePayload, metadata map[string]string) error {
	raw, err := payload.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return c.svc.publish(c.queue, ActorMessage{Message: raw, Metadata: metadata})
}

// ApproxLen reports the approximate number of pending messages.
func (c *ActorMsgChannel) ApproxLen() (int, error) {
	return c.svc.approxLen(c.queue)
}

// Consume opens the worker-side delivery stream over the inbox.
func (c *ActorMsgChannel) Consume(consumer string) (<-chan Delivery, error) {
	return c.svc.consume(c.queue, consumer)
}

// CommandChannel carries desired worker-fleet state to the supervisor.
type CommandChannel struct {
	svc *Service
}

// PutCmd publishes one desired-state command.
func (c *CommandChannel) PutCmd(cmd Command) error {
	return c.svc.publish(commandQueueName, cmd)
}

// Consume opens the supervisor-side delivery stream.
func (c *CommandChannel) Consume(consumer string) (<-chan Delivery, error) {
	return c.svc.consume(commandQueueName, consumer)
}

// WorkerChannel delivers control messages to one specific worker.
type WorkerChannel struct {
	svc   *Service
	queue string
}

// PutShutdown asks the worker to drain and stop. The worker transitions to
// SHUTDOWN_REQUESTED and never back to READY.
func (c *WorkerChannel) PutShutdown() error {
	return c.svc.publish(c.queue, WorkerCommand{Command: shutdownCommand})
}

// Consume opens the worker-side delivery stream.
func (c *WorkerChannel) Consume(consumer string) (<-chan Delivery, error) {
	return c.svc.consume(c.queue, consumer)
}

// Delivery is one consumed message body. Ack must be called once the
// message has been fully processed; at-least-once semantics mean an
// unacked message is redelivered.
type Delivery struct {
	Body []byte
	ack  func() error
}

// Ack acknowledges the delivery.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

func (s *Service) consume(queue, consumer string) (<-chan Delivery, error) {
	if err := s.declare(queue); err != nil {
		return nil, err
	}
	s.mu.Lock()
	deliveries, err := s.ch.Consume(queue, consumer, false, false, false, false, nil)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", queue, err)
	}
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for d := range deliveries {
			d := d
			out <- Delivery{Body: d.Body, ack: func() error { return d.Ack(false) }}
		}
	}()
	return out, nil
}
