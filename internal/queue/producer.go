package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

const (
	DetectionsStreamName  = "DETECTIONS"
	DetectionsSubjectBase = "detections"
	AlertsStreamName      = "ALERTS"
	AlertsSubjectBase     = "alerts"
	ControlSubject        = "camera.control"
)

var errNotConnected = errors.New("nats not connected")

func connect(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates JetStream streams if they don't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        DetectionsStreamName,
			Subjects:    []string{DetectionsSubjectBase + ".>"},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      10 * time.Minute,
			MaxMsgs:     100000,
			MaxBytes:    512 * 1024 * 1024,
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Duplicates:  30 * time.Second,
			Description: "Face detection results awaiting the alert pipeline",
		},
		{
			Name:        AlertsStreamName,
			Subjects:    []string{AlertsSubjectBase + ".>"},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      time.Hour,
			MaxMsgs:     100000,
			Storage:     jetstream.FileStorage,
			Description: "Live alert and browser notification events for dashboards",
		},
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		allOK := true
		for _, cfg := range streams {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
			cancel()
			if err != nil {
				allOK = false
				if attempt == maxAttempts {
					return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
				}
				slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
				break
			}
			slog.Info("ensured NATS stream", "name", cfg.Name)
		}
		if allOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// PublishDetection enqueues a detection result for the worker.
func (p *Producer) PublishDetection(ctx context.Context, msg *models.DetectionMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal detection: %w", err)
	}

	_, err = p.js.Publish(ctx, DetectionSubject(msg.Owner.String()), payload)
	if err != nil {
		return fmt.Errorf("publish detection: %w", err)
	}
	return nil
}

// PublishAlert publishes a live dashboard event. It satisfies notify.Bus.
func (p *Producer) PublishAlert(ctx context.Context, event *dto.WSEvent) error {
	if !p.nc.IsConnected() {
		return errNotConnected
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	_, err = p.js.Publish(ctx, AlertSubject(event.Owner.String()), payload)
	if err != nil {
		return fmt.Errorf("publish alert event: %w", err)
	}
	return nil
}

// PublishControl publishes a camera command via raw NATS (not JetStream).
// Workers subscribe to ControlSubject.
func (p *Producer) PublishControl(cmd models.CameraCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal camera command: %w", err)
	}
	return p.nc.Publish(ControlSubject, data)
}

// QueueDepth returns the number of pending messages in the DETECTIONS stream.
func (p *Producer) QueueDepth(ctx context.Context) (uint64, error) {
	stream, err := p.js.Stream(ctx, DetectionsStreamName)
	if err != nil {
		return 0, err
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.Msgs, nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return errNotConnected
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
