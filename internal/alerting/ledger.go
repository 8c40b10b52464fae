package alerting

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/models"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// AlertStore is the part of the event store the ledger needs.
type AlertStore interface {
	// AcknowledgeAlert sets an owner's alert to acknowledged from any state.
	// It returns storage.ErrNotFound for unknown ids.
	AcknowledgeAlert(ctx context.Context, owner, id uuid.UUID) error
	ListRecentAlerts(ctx context.Context, owner uuid.UUID, limit int) ([]models.AlertNotification, error)
}

// Ledger tracks the acknowledgement side of the alert lifecycle.
type Ledger struct {
	store AlertStore
}

func NewLedger(store AlertStore) *Ledger {
	return &Ledger{store: store}
}

// Acknowledge marks the alert acknowledged. Acknowledging twice is not an error.
func (l *Ledger) Acknowledge(ctx context.Context, owner, id uuid.UUID) error {
	if err := l.store.AcknowledgeAlert(ctx, owner, id); err != nil {
		return fmt.Errorf("acknowledge alert %s: %w", id, err)
	}
	return nil
}

// ListRecent returns a fresh snapshot of the owner's newest alerts.
func (l *Ledger) ListRecent(ctx context.Context, owner uuid.UUID, limit int) ([]models.AlertNotification, error) {
	alerts, err := l.store.ListRecentAlerts(ctx, owner, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	return alerts, nil
}

// ClampLimit maps a requested page size onto [1, MaxRecentLimit], using the
// default for non-positive values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
