package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

type DetectionHandler func(ctx context.Context, msg *models.DetectionMessage) error

type AlertHandler func(ctx context.Context, event *dto.WSEvent) error

type Consumer struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	workers sync.WaitGroup
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js}, nil
}

// ConsumeDetections starts consuming detection results from the DETECTIONS stream.
// workerCount determines how many goroutines hand messages to handler concurrently.
// Messages are acked once the handler accepts them; undecodable payloads are terminated.
func (c *Consumer) ConsumeDetections(ctx context.Context, consumerName string, handler DetectionHandler, workerCount int) error {
	if workerCount < 1 {
		workerCount = 1
	}

	stream, err := c.js.Stream(ctx, DetectionsStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", DetectionsStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		FilterSubject: DetectionsSubjectBase + ".>",
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	msgCh := make(chan jetstream.Msg, workerCount*2)

	go func() {
		defer close(msgCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(workerCount, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch detections error", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				select {
				case msgCh <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	c.workers.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func(workerID int) {
			defer c.workers.Done()
			for msg := range msgCh {
				if ctx.Err() != nil {
					_ = msg.Nak()
					continue
				}
				var det models.DetectionMessage
				if err := json.Unmarshal(msg.Data(), &det); err != nil {
					slog.Error("decode detection", "worker", workerID, "error", err, "subject", msg.Subject())
					_ = msg.Term()
					continue
				}
				if err := handler(ctx, &det); err != nil {
					slog.Error("process detection error", "worker", workerID, "error", err, "subject", msg.Subject())
					_ = msg.Nak()
				} else {
					_ = msg.Ack()
				}
			}
		}(i)
	}

	slog.Info("detection consumer started", "consumer", consumerName, "workers", workerCount)
	return nil
}

// ConsumeAlerts starts consuming live alert events (for API to broadcast via WebSocket).
func (c *Consumer) ConsumeAlerts(ctx context.Context, consumerName string, handler AlertHandler) error {
	stream, err := c.js.Stream(ctx, AlertsStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", AlertsStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       10 * time.Second,
		MaxDeliver:    3,
		FilterSubject: AlertsSubjectBase + ".>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				var event dto.WSEvent
				if err := json.Unmarshal(msg.Data(), &event); err != nil {
					slog.Error("decode alert event", "error", err)
					_ = msg.Term()
					continue
				}
				if err := handler(ctx, &event); err != nil {
					slog.Error("process alert event error", "error", err)
					_ = msg.Nak()
				} else {
					_ = msg.Ack()
				}
			}
		}
	}()

	slog.Info("alert consumer started", "consumer", consumerName)
	return nil
}

// SubscribeControl listens for camera commands on the raw NATS control subject.
func (c *Consumer) SubscribeControl(handler func(models.CameraCommand)) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(ControlSubject, func(m *nats.Msg) {
		var cmd models.CameraCommand
		if err := json.Unmarshal(m.Data, &cmd); err != nil {
			slog.Error("decode camera command", "error", err)
			return
		}
		handler(cmd)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", ControlSubject, err)
	}
	return sub, nil
}

// Wait blocks until the detection workers have exited after their context
// was cancelled. Messages still buffered at that point are nak'd for redelivery.
func (c *Consumer) Wait() {
	c.workers.Wait()
}

func (c *Consumer) Ping() error {
	if !c.nc.IsConnected() {
		return errNotConnected
	}
	return nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
