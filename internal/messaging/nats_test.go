package messaging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"schedule-service/internal/messaging"
	"schedule-service/internal/metrics"
	"schedule-service/internal/schedule"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runNATSServer starts an in-process server on a random port.
func runNATSServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS server did not start")
	}
	t.Cleanup(srv.Shutdown)

	return srv
}

func TestNATSProducer(t *testing.T) {
	srv := runNATSServer(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	producer, err := messaging.NewNATSProducer(srv.ClientURL(), "class.events", logger, metrics.NewMock())
	require.NoError(t, err)
	t.Cleanup(func() { _ = producer.Close() })

	// Raw subscription on the subject the producer writes to.
	conn, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	sub, err := conn.SubscribeSync("class.events")
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	evt := schedule.ClassEvent{
		Event:      schedule.EventClassCreated,
		ClassID:    7,
		TeacherID:  3,
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, producer.Publish(context.Background(), "7", evt))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var received schedule.ClassEvent
	require.NoError(t, json.Unmarshal(msg.Data, &received))
	assert.Equal(t, schedule.EventClassCreated, received.Event)
	assert.Equal(t, int64(7), received.ClassID)
	assert.Equal(t, int64(3), received.TeacherID)
	assert.False(t, received.OccurredAt.IsZero())
}

func TestNATSProducer_ConnectFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	_, err := messaging.NewNATSProducer("nats://127.0.0.1:1", "class.events", logger, metrics.NewMock())
	assert.Error(t, err)
}
