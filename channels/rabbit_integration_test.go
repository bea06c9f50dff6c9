//go:build integration
// +build integration

package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRabbitMQContainer starts a RabbitMQ container for testing
func setupRabbitMQContainer(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start RabbitMQ container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	url := fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
	return url, cleanup
}

// TestService_Integration_MessageRoundTrip publishes to a real broker and
// consumes the message back, checking the wire format end to end.
func TestService_Integration_MessageRoundTrip(t *testing.T) {
	url, cleanup := setupRabbitMQContainer(t)
	defer cleanup()

	svc, err := NewService(url)
	require.NoError(t, err)
	defer svc.Close()

	meta := map[string]string{
		MetaUsername:    "jdoe",
		MetaContentType: ContentTypeText,
	}
	require.NoError(t, svc.ActorMsgChannel("dev_abc").PutMsg(TextPayload("hi"), meta))

	deliveries, err := svc.ActorMsgChannel("dev_abc").Consume("integration-test")
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var msg ActorMessage
		require.NoError(t, json.Unmarshal(d.Body, &msg))
		assert.Equal(t, `"hi"`, string(msg.Message))
		assert.Equal(t, "jdoe", msg.Metadata[MetaUsername])
		require.NoError(t, d.Ack())
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery within timeout")
	}
}

// TestService_Integration_ApproxLen checks the broker-backed depth report.
func TestService_Integration_ApproxLen(t *testing.T) {
	url, cleanup := setupRabbitMQContainer(t)
	defer cleanup()

	svc, err := NewService(url)
	require.NoError(t, err)
	defer svc.Close()

	ch := svc.ActorMsgChannel("dev_depth")
	n, err := ch.ApproxLen()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, ch.PutMsg(TextPayload("one"), nil))
	require.NoError(t, ch.PutMsg(TextPayload("two"), nil))

	// the broker counts asynchronously; poll briefly
	require.Eventually(t, func() bool {
		n, err := ch.ApproxLen()
		return err == nil && n == 2
	}, 10*time.Second, 200*time.Millisecond)
}

// TestService_Integration_CommandChannel round-trips one desired-state
// command through the singleton queue.
func TestService_Integration_CommandChannel(t *testing.T) {
	url, cleanup := setupRabbitMQContainer(t)
	defer cleanup()

	svc, err := NewService(url)
	require.NoError(t, err)
	defer svc.Close()

	cmd := Command{ActorID: "dev_abc", WorkerIDs: []string{"w1"}, Num: 1, StopExisting: true}
	require.NoError(t, svc.CommandChannel().PutCmd(cmd))

	deliveries, err := svc.CommandChannel().Consume("integration-test")
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got Command
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, cmd, got)
		require.NoError(t, d.Ack())
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery within timeout")
	}
}
