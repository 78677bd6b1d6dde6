package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AuditConsumer drains the booking events queue and appends one line per
// event to an audit writer, typically a rotated file.
type AuditConsumer struct {
	URL   string
	Queue string
	Out   io.Writer
	Log   *logrus.Logger

	mu sync.Mutex
}

// Run connects, consumes and reconnects with capped backoff until ctx is
// cancelled.
func (c *AuditConsumer) Run(ctx context.Context) error {
	if c.Queue == "" {
		c.Queue = DefaultQueue
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err == nil {
			backoff = time.Second
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		c.Log.WithFields(logrus.Fields{"error": err.Error(), "retry_in": backoff.String()}).
			Warn("audit consumer disconnected")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.Log.WithField("queue", c.Queue).Info("audit consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.Log.WithError(err).Error("audit message rejected")
				_ = d.Nack(false, false) // do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message and writes its audit line.
func (c *AuditConsumer) Handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == 0 || ev.Kind == "" {
		return errors.New("event without booking id or kind")
	}
	line := fmt.Sprintf("[%s] %s | booking_id=%d | room_id=%d | guest=%q | stay=%s..%s | total=%s | status=%s\n",
		ev.OccurredAt.Format(time.RFC3339), ev.Kind, ev.BookingID, ev.RoomID, ev.GuestName,
		ev.CheckIn, ev.CheckOut, ev.TotalPrice, ev.Status)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.Out, line); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}
