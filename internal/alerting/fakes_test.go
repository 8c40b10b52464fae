package alerting

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/notify"
	"github.com/your-org/fdalert/internal/storage"
)

type fakeEventStore struct {
	mu       sync.Mutex
	inserts  int
	events   []*models.DetectionEvent
	evidence []*models.EvidenceRecord
	alerts   map[uuid.UUID]*models.AlertNotification
	order    []uuid.UUID

	failEvent func(n int, ev *models.DetectionEvent) error
	failAlert error
	onCreate  func(a *models.AlertNotification)
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{alerts: make(map[uuid.UUID]*models.AlertNotification)}
}

func (s *fakeEventStore) CreateDetectionEvent(_ context.Context, ev *models.DetectionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.failEvent != nil {
		if err := s.failEvent(s.inserts, ev); err != nil {
			return err
		}
	}
	ev.ID = uuid.New()
	ev.CreatedAt = time.Now()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeEventStore) CreateEvidenceRecord(_ context.Context, rec *models.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.New()
	s.evidence = append(s.evidence, rec)
	return nil
}

func (s *fakeEventStore) CreateAlert(_ context.Context, a *models.AlertNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAlert != nil {
		return s.failAlert
	}
	a.ID = uuid.New()
	a.Status = models.AlertStatusPending
	a.CreatedAt = time.Now()
	stored := *a
	s.alerts[a.ID] = &stored
	s.order = append(s.order, a.ID)
	if s.onCreate != nil {
		s.onCreate(&stored)
	}
	return nil
}

func (s *fakeEventStore) FinalizeAlert(_ context.Context, id uuid.UUID, status models.AlertStatus, payload models.AlertPayload) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return false, storage.ErrNotFound
	}
	if !models.CanTransition(a.Status, status) {
		return false, nil
	}
	a.Status = status
	a.Payload = payload
	return true, nil
}

func (s *fakeEventStore) MarkNotificationSent(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		for _, id := range ids {
			if ev.ID == id {
				ev.NotificationSent = true
			}
		}
	}
	return nil
}

func (s *fakeEventStore) AcknowledgeAlert(_ context.Context, owner, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok || a.Owner != owner {
		return storage.ErrNotFound
	}
	if !models.CanTransition(a.Status, models.AlertStatusAcknowledged) {
		return errors.New("illegal transition")
	}
	a.Status = models.AlertStatusAcknowledged
	return nil
}

func (s *fakeEventStore) ListRecentAlerts(_ context.Context, owner uuid.UUID, limit int) ([]models.AlertNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AlertNotification
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		if a := s.alerts[s.order[i]]; a.Owner == owner {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeEventStore) alertList() []*models.AlertNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AlertNotification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.alerts[id])
	}
	return out
}

type fakeEvidenceStore struct {
	mu      sync.Mutex
	err     error
	paths   []string
	types   []string
	uploads int
}

func (s *fakeEvidenceStore) Upload(_ context.Context, path string, _ []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.err != nil {
		return "", s.err
	}
	s.paths = append(s.paths, path)
	s.types = append(s.types, contentType)
	return path, nil
}

func (s *fakeEvidenceStore) PublicURL(path string) string {
	return "http://evidence.local/" + path
}

type fakeChannel struct {
	name    string
	enabled bool
	status  notify.Status
	err     error
	advise  bool
	delay   time.Duration
	panics  bool
	// stall blocks past the deadline without watching ctx, then reports
	// the alert as the channel sees it on seen.
	stall time.Duration
	seen  chan models.AlertNotification

	mu    sync.Mutex
	calls []*models.AlertNotification
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Enabled(*models.Configuration) bool { return c.enabled }

func (c *fakeChannel) Dispatch(ctx context.Context, alert *models.AlertNotification, _ *models.Configuration) notify.Outcome {
	c.mu.Lock()
	c.calls = append(c.calls, alert)
	c.mu.Unlock()
	if c.panics {
		panic("channel exploded")
	}
	if c.stall > 0 {
		time.Sleep(c.stall)
		c.seen <- *alert
		return notify.Outcome{Channel: c.name, Status: c.status}
	}
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return notify.Outcome{Channel: c.name, Status: notify.StatusFailed, Err: ctx.Err()}
		}
	}
	return notify.Outcome{Channel: c.name, Status: c.status, Err: c.err, Advisory: c.advise}
}

func (c *fakeChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func okChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, enabled: true, status: notify.StatusOK}
}

func failingChannel(name string, err error) *fakeChannel {
	return &fakeChannel{name: name, enabled: true, status: notify.StatusFailed, err: err}
}

func outcomeStatuses(outs []notify.Outcome) map[string]notify.Status {
	m := make(map[string]notify.Status, len(outs))
	for _, o := range outs {
		m[o.Channel] = o.Status
	}
	return m
}

func sortedChannels(notes []models.ChannelNote) []string {
	var names []string
	for _, n := range notes {
		names = append(names, n.Channel)
	}
	sort.Strings(names)
	return names
}
