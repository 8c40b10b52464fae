package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/fdalert/internal/config"
	"github.com/your-org/fdalert/internal/models"
)

// ErrNotFound is returned when an owner-scoped row does not exist.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Detection events ---

func (s *PostgresStore) CreateDetectionEvent(ctx context.Context, ev *models.DetectionEvent) error {
	bbox, err := json.Marshal(ev.BBox)
	if err != nil {
		return fmt.Errorf("marshal bounding box: %w", err)
	}

	var vec *pgvector.Vector
	if len(ev.Embedding) > 0 {
		v := pgvector.NewVector(ev.Embedding)
		vec = &v
	}

	var personID, personName *string
	if ev.MatchedPerson != nil {
		personID, personName = &ev.MatchedPerson.ID, &ev.MatchedPerson.Name
	}

	var gender *string
	if ev.Gender != nil {
		g := string(*ev.Gender)
		gender = &g
	}

	id := uuid.New()
	var createdAt time.Time
	err = s.pool.QueryRow(ctx,
		`INSERT INTO face_detection_events (id, user_id, camera_id, camera_name, known_face_id, detected_name,
		     confidence_score, estimated_age, estimated_gender, bounding_box, embedding, screenshot_url, event_timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at`,
		id, ev.Owner, ev.CameraID, ev.CameraName, personID, personName,
		ev.Confidence, ev.Age, gender, bbox, vec, ev.ScreenshotURL, ev.Timestamp,
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("create detection event: %w", err)
	}
	ev.ID = id
	ev.CreatedAt = createdAt
	return nil
}

func (s *PostgresStore) MarkNotificationSent(ctx context.Context, eventIDs []uuid.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE face_detection_events SET notification_sent = TRUE WHERE id = ANY($1)`, eventIDs)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// ListRecentEvents returns the owner's newest detection events, optionally
// filtered to one camera.
func (s *PostgresStore) ListRecentEvents(ctx context.Context, owner uuid.UUID, cameraID string, limit int) ([]models.DetectionEvent, error) {
	query := `SELECT id, user_id, camera_id, camera_name, known_face_id, detected_name, confidence_score,
	              estimated_age, estimated_gender, bounding_box, screenshot_url, event_timestamp,
	              notification_sent, created_at
	          FROM face_detection_events WHERE user_id = $1`
	args := []any{owner}
	if cameraID != "" {
		query += " AND camera_id = $2"
		args = append(args, cameraID)
	}
	query += fmt.Sprintf(" ORDER BY event_timestamp DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list detection events: %w", err)
	}
	defer rows.Close()

	events := []models.DetectionEvent{}
	for rows.Next() {
		var (
			ev             models.DetectionEvent
			personID, name *string
			gender         *string
			bbox           []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Owner, &ev.CameraID, &ev.CameraName, &personID, &name, &ev.Confidence,
			&ev.Age, &gender, &bbox, &ev.ScreenshotURL, &ev.Timestamp, &ev.NotificationSent, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan detection event: %w", err)
		}
		if name != nil {
			ev.MatchedPerson = &models.PersonRef{Name: *name}
			if personID != nil {
				ev.MatchedPerson.ID = *personID
			}
		}
		if gender != nil {
			g := models.Gender(*gender)
			ev.Gender = &g
		}
		if err := json.Unmarshal(bbox, &ev.BBox); err != nil {
			return nil, fmt.Errorf("decode bounding box of %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// --- Evidence ---

func (s *PostgresStore) CreateEvidenceRecord(ctx context.Context, rec *models.EvidenceRecord) error {
	id := uuid.New()
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`INSERT INTO evidence_storage (id, user_id, detection_event_id, file_url, file_type, mime_type, file_size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		id, rec.Owner, rec.DetectionEventID, rec.FileURL, rec.FileType, rec.MimeType, rec.FileSize,
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("create evidence record: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = createdAt
	return nil
}

// --- Alerts ---

func (s *PostgresStore) CreateAlert(ctx context.Context, a *models.AlertNotification) error {
	data, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	var eventID *uuid.UUID
	if a.DetectionEventID != uuid.Nil {
		eventID = &a.DetectionEventID
	}

	id := uuid.New()
	var createdAt time.Time
	err = s.pool.QueryRow(ctx,
		`INSERT INTO alert_notifications (id, user_id, detection_event_id, notification_type, severity, message,
		     camera_id, camera_name, event_timestamp, notification_data, notification_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		id, a.Owner, eventID, string(a.Type), string(a.Severity), a.Message,
		a.CameraID, a.CameraName, a.Timestamp, data, string(models.AlertStatusPending),
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	a.ID = id
	a.Status = models.AlertStatusPending
	a.CreatedAt = createdAt
	return nil
}

// transition applies a status change guarded by the transition table, so a
// status never moves backward even under concurrent writers.
func (s *PostgresStore) transition(ctx context.Context, query string, to models.AlertStatus, args ...any) (int64, error) {
	from := models.AllowedFrom(to)
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}
	tag, err := s.pool.Exec(ctx, query, append(args, string(to), allowed)...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) FinalizeAlert(ctx context.Context, id uuid.UUID, status models.AlertStatus, payload models.AlertPayload) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal alert payload: %w", err)
	}

	n, err := s.transition(ctx,
		`UPDATE alert_notifications
		 SET notification_data = $2, sent_at = $3, notification_status = $4
		 WHERE id = $1 AND notification_status = ANY($5)`,
		status, id, data, payload.SentAt)
	if err != nil {
		return false, fmt.Errorf("finalize alert: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) AcknowledgeAlert(ctx context.Context, owner, id uuid.UUID) error {
	n, err := s.transition(ctx,
		`UPDATE alert_notifications SET notification_status = $3
		 WHERE id = $1 AND user_id = $2 AND notification_status = ANY($4)`,
		models.AlertStatusAcknowledged, id, owner)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListRecentAlerts(ctx context.Context, owner uuid.UUID, limit int) ([]models.AlertNotification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, detection_event_id, notification_type, severity, message, camera_id, camera_name,
		     event_timestamp, notification_data, notification_status, created_at
		 FROM alert_notifications WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.AlertNotification{}
	for rows.Next() {
		var (
			a                     models.AlertNotification
			eventID               *uuid.UUID
			typ, severity, status string
			data                  []byte
		)
		if err := rows.Scan(&a.ID, &a.Owner, &eventID, &typ, &severity, &a.Message, &a.CameraID, &a.CameraName,
			&a.Timestamp, &data, &status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if eventID != nil {
			a.DetectionEventID = *eventID
		}
		a.Type = models.NotificationType(typ)
		a.Severity = models.Severity(severity)
		a.Status = models.AlertStatus(status)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &a.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of alert %s: %w", a.ID, err)
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// --- Configuration ---

const configColumns = `id, user_id, confidence_threshold, visual_alerts_enabled, audio_alerts_enabled,
	browser_push_enabled, telegram_notifications_enabled, COALESCE(telegram_bot_token, ''),
	COALESCE(telegram_chat_id, ''), age_detection_enabled, gender_detection_enabled,
	auto_evidence_capture, push_permission, updated_at`

func scanConfig(row pgx.Row) (*models.Configuration, error) {
	var (
		c          models.Configuration
		permission string
	)
	err := row.Scan(&c.ID, &c.Owner, &c.ConfidenceThreshold, &c.VisualAlertsEnabled, &c.AudioAlertsEnabled,
		&c.BrowserPushEnabled, &c.ChatRelayEnabled, &c.ChatBotToken, &c.ChatID,
		&c.AgeDetectionEnabled, &c.GenderDetectionEnabled, &c.AutoEvidenceCapture, &permission, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.PushPermission = models.PushPermission(permission)
	return &c, nil
}

func (s *PostgresStore) GetConfig(ctx context.Context, owner uuid.UUID) (*models.Configuration, error) {
	c, err := scanConfig(s.pool.QueryRow(ctx,
		`SELECT `+configColumns+` FROM face_recognition_config WHERE user_id = $1`, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return c, nil
}

// UpsertConfig writes the owner's configuration. The push permission is not
// touched here; it only changes through SetPushPermission.
func (s *PostgresStore) UpsertConfig(ctx context.Context, c *models.Configuration) (*models.Configuration, error) {
	out, err := scanConfig(s.pool.QueryRow(ctx,
		`INSERT INTO face_recognition_config (id, user_id, confidence_threshold, visual_alerts_enabled,
		     audio_alerts_enabled, browser_push_enabled, telegram_notifications_enabled, telegram_bot_token,
		     telegram_chat_id, age_detection_enabled, gender_detection_enabled, auto_evidence_capture)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12)
		 ON CONFLICT (user_id) DO UPDATE SET
		     confidence_threshold = EXCLUDED.confidence_threshold,
		     visual_alerts_enabled = EXCLUDED.visual_alerts_enabled,
		     audio_alerts_enabled = EXCLUDED.audio_alerts_enabled,
		     browser_push_enabled = EXCLUDED.browser_push_enabled,
		     telegram_notifications_enabled = EXCLUDED.telegram_notifications_enabled,
		     telegram_bot_token = EXCLUDED.telegram_bot_token,
		     telegram_chat_id = EXCLUDED.telegram_chat_id,
		     age_detection_enabled = EXCLUDED.age_detection_enabled,
		     gender_detection_enabled = EXCLUDED.gender_detection_enabled,
		     auto_evidence_capture = EXCLUDED.auto_evidence_capture,
		     updated_at = now()
		 RETURNING `+configColumns,
		uuid.New(), c.Owner, c.ConfidenceThreshold, c.VisualAlertsEnabled, c.AudioAlertsEnabled,
		c.BrowserPushEnabled, c.ChatRelayEnabled, c.ChatBotToken, c.ChatID,
		c.AgeDetectionEnabled, c.GenderDetectionEnabled, c.AutoEvidenceCapture))
	if err != nil {
		return nil, fmt.Errorf("upsert config: %w", err)
	}
	return out, nil
}

// SetPushPermission records the owner's browser decision once. A decision
// already made is kept; the stored value is returned either way.
func (s *PostgresStore) SetPushPermission(ctx context.Context, owner uuid.UUID, decision models.PushPermission) (models.PushPermission, error) {
	var current string
	err := s.pool.QueryRow(ctx,
		`UPDATE face_recognition_config SET push_permission = $2, updated_at = now()
		 WHERE user_id = $1 AND push_permission = 'default'
		 RETURNING push_permission`, owner, string(decision)).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		err = s.pool.QueryRow(ctx,
			`SELECT push_permission FROM face_recognition_config WHERE user_id = $1`, owner).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
	}
	if err != nil {
		return "", fmt.Errorf("set push permission: %w", err)
	}
	return models.PushPermission(current), nil
}
