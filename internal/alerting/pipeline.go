// Package alerting turns detection results into persisted events, alerts and
// channel deliveries.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/fdalert/internal/classify"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/notify"
	"github.com/your-org/fdalert/internal/observability"
)

// EventStore is the durable side of the pipeline. Implementations assign IDs
// and creation times on insert.
type EventStore interface {
	CreateDetectionEvent(ctx context.Context, ev *models.DetectionEvent) error
	CreateEvidenceRecord(ctx context.Context, rec *models.EvidenceRecord) error
	CreateAlert(ctx context.Context, alert *models.AlertNotification) error
	// FinalizeAlert moves a pending alert to status and stores payload. It
	// reports false when the alert was no longer pending.
	FinalizeAlert(ctx context.Context, id uuid.UUID, status models.AlertStatus, payload models.AlertPayload) (bool, error)
	MarkNotificationSent(ctx context.Context, eventIDs []uuid.UUID) error
}

// EvidenceStore holds screenshots.
type EvidenceStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	PublicURL(path string) string
}

type Options struct {
	ChannelTimeout  time.Duration
	StoreTimeout    time.Duration
	StoreEmbeddings bool
}

type Pipeline struct {
	events   EventStore
	evidence EvidenceStore
	channels []notify.Channel
	cooldown *Cooldown
	opts     Options
	now      func() time.Time
}

func NewPipeline(events EventStore, evidence EvidenceStore, channels []notify.Channel, cooldown *Cooldown, opts Options) *Pipeline {
	if opts.ChannelTimeout <= 0 {
		opts.ChannelTimeout = 5 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &Pipeline{
		events:   events,
		evidence: evidence,
		channels: channels,
		cooldown: cooldown,
		opts:     opts,
		now:      time.Now,
	}
}

// ProcessDetection runs one detection result through validation,
// classification, evidence capture, event persistence, alert creation and
// dispatch. cfg is a snapshot and is never modified. A nil cfg skips the
// result entirely. Cancelling ctx does not interrupt a call in progress.
func (p *Pipeline) ProcessDetection(ctx context.Context, owner uuid.UUID, result *models.FaceDetectionResult, cameraName string, cfg *models.Configuration) *Summary {
	sum := newSummary(owner, result.CameraID)
	sum.Faces = len(result.Faces)
	if cfg == nil {
		sum.Skipped = true
		return sum
	}

	ctx = context.WithoutCancel(ctx)
	start := p.now()
	observability.DetectionsProcessed.WithLabelValues(result.CameraID).Inc()

	ts := result.Timestamp
	if ts.IsZero() {
		ts = start
	}

	faces, origIdx := p.validate(sum, result.Faces)

	var intents []classify.Intent
	sum.guard(StageAlerts, func() error {
		intents = classify.Classify(faces, cfg)
		return nil
	})
	intents = p.applyCooldown(ctx, sum, owner, result.CameraID, intents, faces)

	triggering := make([]bool, len(faces))
	for _, in := range intents {
		for _, idx := range in.Faces {
			triggering[idx] = true
		}
	}

	var evidenceURL, mimeType string
	if len(intents) > 0 && len(result.Screenshot) > 0 && cfg.AutoEvidenceCapture {
		sum.guard(StageEvidence, func() error {
			var err error
			evidenceURL, mimeType, err = p.uploadEvidence(ctx, owner, result.CameraID, ts, result.Screenshot)
			return err
		})
		sum.EvidenceURL = evidenceURL
	}

	events := make([]*models.DetectionEvent, len(faces))
	for i, face := range faces {
		ev := p.buildEvent(owner, result.CameraID, cameraName, ts, face, cfg)
		if triggering[i] && evidenceURL != "" {
			u := evidenceURL
			ev.ScreenshotURL = &u
		}
		sum.guard(StageEvents, func() error {
			sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
			defer cancel()
			if err := p.events.CreateDetectionEvent(sctx, ev); err != nil {
				sum.Unpersisted = append(sum.Unpersisted, FaceFailure{Index: origIdx[i], FaceID: face.ID, Err: err})
				return fmt.Errorf("face %d: %w", origIdx[i], err)
			}
			events[i] = ev
			sum.Events = append(sum.Events, ev)
			observability.EventsPersisted.Inc()
			return nil
		})
	}

	if evidenceURL != "" {
		sum.guard(StageEvidenceRecord, func() error {
			return p.recordEvidence(ctx, owner, events, triggering, evidenceURL, mimeType, len(result.Screenshot))
		})
	}

	alerts := make([]*models.AlertNotification, 0, len(intents))
	linked := make([][]uuid.UUID, 0, len(intents))
	for _, in := range intents {
		alert, eventIDs := p.createAlert(ctx, sum, owner, result.CameraID, cameraName, ts, in, faces, events, cfg, evidenceURL)
		if alert == nil {
			continue
		}
		alerts = append(alerts, alert)
		linked = append(linked, eventIDs)
	}

	outcomes := p.dispatchAll(ctx, alerts, cfg)

	for i, alert := range alerts {
		p.finalize(ctx, sum, alert, outcomes[i], linked[i], events)
	}

	p.report(sum, start)
	return sum
}

func (p *Pipeline) validate(sum *Summary, in []models.DetectedFace) ([]models.DetectedFace, []int) {
	faces := make([]models.DetectedFace, 0, len(in))
	origIdx := make([]int, 0, len(in))
	for i, f := range in {
		if err := f.Validate(); err != nil {
			sum.Rejected = append(sum.Rejected, FaceFailure{Index: i, FaceID: f.ID, Err: err})
			sum.fail(StageValidate, fmt.Errorf("face %d: %w", i, err))
			observability.FacesRejected.Inc()
			continue
		}
		faces = append(faces, f)
		origIdx = append(origIdx, i)
	}
	return faces, origIdx
}

func (p *Pipeline) applyCooldown(ctx context.Context, sum *Summary, owner uuid.UUID, cameraID string, intents []classify.Intent, faces []models.DetectedFace) []classify.Intent {
	if p.cooldown == nil || len(intents) == 0 {
		return intents
	}
	kept := intents[:0:0]
	for _, in := range intents {
		allowed := true
		sum.guard(StageCooldown, func() error {
			var err error
			allowed, err = p.cooldown.Allow(ctx, owner, cameraID, in, faces)
			return err
		})
		if !allowed {
			sum.Suppressed++
			observability.AlertsSuppressed.WithLabelValues(string(in.Type)).Inc()
			continue
		}
		kept = append(kept, in)
	}
	return kept
}

func (p *Pipeline) uploadEvidence(ctx context.Context, owner uuid.UUID, cameraID string, ts time.Time, shot []byte) (string, string, error) {
	mt := mimetype.Detect(shot)
	path := fmt.Sprintf("%s/%s/%d-%s%s", owner, url.PathEscape(cameraID), ts.UnixNano(), uuid.NewString()[:8], mt.Extension())

	sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()

	stored, err := p.evidence.Upload(sctx, path, shot, mt.String())
	if err != nil {
		observability.EvidenceUploads.WithLabelValues("failed").Inc()
		return "", "", fmt.Errorf("upload evidence %s: %w", path, err)
	}
	observability.EvidenceUploads.WithLabelValues("ok").Inc()
	return p.evidence.PublicURL(stored), mt.String(), nil
}

func (p *Pipeline) buildEvent(owner uuid.UUID, cameraID, cameraName string, ts time.Time, face models.DetectedFace, cfg *models.Configuration) *models.DetectionEvent {
	ev := &models.DetectionEvent{
		Owner:         owner,
		CameraID:      cameraID,
		CameraName:    cameraName,
		MatchedPerson: face.MatchedPerson,
		Confidence:    face.Confidence,
		BBox:          face.BBox,
		Timestamp:     ts,
	}
	if cfg.AgeDetectionEnabled {
		ev.Age = face.Age
	}
	if cfg.GenderDetectionEnabled {
		ev.Gender = face.Gender
	}
	if p.opts.StoreEmbeddings {
		ev.Embedding = face.Embedding
	}
	return ev
}

// recordEvidence links the screenshot to the first persisted triggering event.
func (p *Pipeline) recordEvidence(ctx context.Context, owner uuid.UUID, events []*models.DetectionEvent, triggering []bool, fileURL, mimeType string, size int) error {
	for i, ev := range events {
		if ev == nil || !triggering[i] {
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
		defer cancel()

		rec := &models.EvidenceRecord{
			DetectionEventID: ev.ID,
			Owner:            owner,
			FileURL:          fileURL,
			FileType:         "screenshot",
			MimeType:         mimeType,
			FileSize:         int64(size),
		}
		if err := p.events.CreateEvidenceRecord(sctx, rec); err != nil {
			return fmt.Errorf("create evidence record for event %s: %w", ev.ID, err)
		}
		return nil
	}
	return nil
}

// createAlert persists one pending alert for the intent. It references the
// first persisted event of the intent's faces, falling back to a synthetic
// event for the lead face. It returns nil when the alert could not be stored.
func (p *Pipeline) createAlert(ctx context.Context, sum *Summary, owner uuid.UUID, cameraID, cameraName string, ts time.Time,
	in classify.Intent, faces []models.DetectedFace, events []*models.DetectionEvent, cfg *models.Configuration, evidenceURL string,
) (*models.AlertNotification, []uuid.UUID) {
	lead := faces[in.Lead(faces)]

	payload := models.AlertPayload{
		EvidenceURL: evidenceURL,
		Confidence:  in.MaxConfidence,
	}
	if in.Type == models.NotificationKnownPerson {
		payload.Person = lead.MatchedPerson
	}
	attrs := &models.Attributes{}
	if cfg.AgeDetectionEnabled {
		attrs.Age = lead.Age
	}
	if cfg.GenderDetectionEnabled {
		attrs.Gender = lead.Gender
	}
	if attrs.Age != nil || attrs.Gender != nil {
		payload.Attributes = attrs
	}

	var ref uuid.UUID
	var eventIDs []uuid.UUID
	for _, idx := range in.Faces {
		payload.FaceIDs = append(payload.FaceIDs, faces[idx].ID)
		if ev := events[idx]; ev != nil {
			if ref == uuid.Nil {
				ref = ev.ID
			}
			eventIDs = append(eventIDs, ev.ID)
		}
	}

	if ref == uuid.Nil {
		sum.guard(StageAlerts, func() error {
			synthetic := p.buildEvent(owner, cameraID, cameraName, ts, lead, cfg)
			sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
			defer cancel()
			if err := p.events.CreateDetectionEvent(sctx, synthetic); err != nil {
				return fmt.Errorf("create synthetic event for %s alert: %w", in.Type, err)
			}
			ref = synthetic.ID
			return nil
		})
	}

	alert := &models.AlertNotification{
		Owner:            owner,
		DetectionEventID: ref,
		Type:             in.Type,
		Severity:         in.Severity,
		Message:          in.Message,
		CameraID:         cameraID,
		CameraName:       cameraName,
		Timestamp:        ts,
		Payload:          payload,
		Status:           models.AlertStatusPending,
	}

	created := false
	sum.guard(StageAlerts, func() error {
		sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
		defer cancel()
		if err := p.events.CreateAlert(sctx, alert); err != nil {
			return fmt.Errorf("create %s alert: %w", in.Type, err)
		}
		created = true
		return nil
	})
	if !created {
		if p.cooldown != nil {
			sum.guard(StageCooldown, func() error {
				sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
				defer cancel()
				return p.cooldown.Release(sctx, owner, cameraID, in, faces)
			})
		}
		return nil, nil
	}

	observability.AlertsCreated.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
	return alert, eventIDs
}

// dispatchAll delivers every alert concurrently and returns the outcomes of
// alert i at index i once all channels of all alerts have finished.
func (p *Pipeline) dispatchAll(ctx context.Context, alerts []*models.AlertNotification, cfg *models.Configuration) [][]notify.Outcome {
	results := make([][]notify.Outcome, len(alerts))
	var g errgroup.Group
	for i, alert := range alerts {
		g.Go(func() error {
			results[i] = p.dispatch(ctx, alert, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) dispatch(ctx context.Context, alert *models.AlertNotification, cfg *models.Configuration) []notify.Outcome {
	var enabled []notify.Channel
	for _, ch := range p.channels {
		if ch.Enabled(cfg) {
			enabled = append(enabled, ch)
		}
	}

	outcomes := make([]notify.Outcome, len(enabled))
	var g errgroup.Group
	for i, ch := range enabled {
		g.Go(func() error {
			outcomes[i] = p.dispatchOne(ctx, ch, alert, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// dispatchOne bounds a channel by the channel timeout. A channel that does not
// return in time is reported failed; its late result is discarded.
func (p *Pipeline) dispatchOne(ctx context.Context, ch notify.Channel, alert *models.AlertNotification, cfg *models.Configuration) notify.Outcome {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, p.opts.ChannelTimeout)
	defer cancel()

	// A channel that outlives the timeout keeps running after finalize
	// rewrites the alert, so it works on its own copy.
	own := *alert
	own.Payload.FaceIDs = slices.Clone(alert.Payload.FaceIDs)

	done := make(chan notify.Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- notify.Outcome{Channel: ch.Name(), Status: notify.StatusFailed, Err: fmt.Errorf("panic: %v", r)}
			}
		}()
		done <- ch.Dispatch(cctx, &own, cfg)
	}()

	var out notify.Outcome
	select {
	case out = <-done:
	case <-cctx.Done():
		out = notify.Outcome{Channel: ch.Name(), Status: notify.StatusFailed, Err: fmt.Errorf("%s: %w", ch.Name(), cctx.Err())}
	}
	if out.Channel == "" {
		out.Channel = ch.Name()
	}

	observability.ChannelDuration.WithLabelValues(out.Channel).Observe(time.Since(start).Seconds())
	observability.ChannelDispatches.WithLabelValues(out.Channel, string(out.Status)).Inc()
	return out
}

// finalize decides the alert status from its channel outcomes and writes it.
// Advisory outcomes are recorded but do not count.
func (p *Pipeline) finalize(ctx context.Context, sum *Summary, alert *models.AlertNotification, outcomes []notify.Outcome, eventIDs []uuid.UUID, events []*models.DetectionEvent) {
	status := models.AlertStatusFailed
	payload := alert.Payload
	payload.Channels = make([]models.ChannelNote, 0, len(outcomes))
	for _, o := range outcomes {
		payload.Channels = append(payload.Channels, o.Note())
		if o.Receipt != nil {
			payload.ChatReceipt = o.Receipt
		}
		switch {
		case o.Status == notify.StatusOK && !o.Advisory:
			status = models.AlertStatusSent
		case o.Status == notify.StatusFailed:
			sum.fail(StageDispatch, fmt.Errorf("alert %s channel %s: %w", alert.ID, o.Channel, o.Err))
		}
	}
	if status == models.AlertStatusSent {
		sentAt := p.now().UTC()
		payload.SentAt = &sentAt
	}

	res := AlertResult{Alert: alert, Outcomes: outcomes}
	sum.guard(StageFinalize, func() error {
		sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
		defer cancel()
		applied, err := p.events.FinalizeAlert(sctx, alert.ID, status, payload)
		if err != nil {
			return fmt.Errorf("finalize alert %s: %w", alert.ID, err)
		}
		res.Applied = applied
		if !applied {
			slog.Debug("alert left pending before finalize", "alert_id", alert.ID)
		}
		return nil
	})
	alert.Payload = payload
	if res.Applied {
		alert.Status = status
	}

	if status == models.AlertStatusSent && len(eventIDs) > 0 {
		sum.guard(StageFinalize, func() error {
			sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
			defer cancel()
			if err := p.events.MarkNotificationSent(sctx, eventIDs); err != nil {
				return fmt.Errorf("mark events notified: %w", err)
			}
			for _, ev := range events {
				if ev != nil && containsID(eventIDs, ev.ID) {
					ev.NotificationSent = true
				}
			}
			return nil
		})
	}

	sum.Alerts = append(sum.Alerts, res)
}

func (p *Pipeline) report(sum *Summary, start time.Time) {
	for stage := range sum.Stages {
		observability.StageFailures.WithLabelValues(string(stage)).Inc()
	}

	attrs := []any{
		"owner", sum.Owner,
		"camera_id", sum.CameraID,
		"faces", sum.Faces,
		"events", len(sum.Events),
		"alerts", len(sum.Alerts),
		"suppressed", sum.Suppressed,
		"duration", time.Since(start).String(),
	}

	err := sum.Err()
	switch {
	case sum.Failed(StageEvents):
		slog.Error("detection events not persisted", append(attrs, "unpersisted", len(sum.Unpersisted), "error", err)...)
	case err != nil:
		slog.Warn("detection processed with failures", append(attrs, "error", err)...)
	default:
		slog.Info("detection processed", attrs...)
	}
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
