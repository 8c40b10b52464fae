package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationFaceDetection NotificationType = "face_detection"
	NotificationUnknownPerson NotificationType = "unknown_person"
	NotificationKnownPerson   NotificationType = "known_person"
	NotificationSystemAlert   NotificationType = "system_alert"
)

// Severity is ordered: low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal of s, 0 for unknown values.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Less reports whether s orders before o.
func (s Severity) Less(o Severity) bool {
	return s.Rank() < o.Rank()
}

type AlertStatus string

const (
	AlertStatusPending      AlertStatus = "pending"
	AlertStatusSent         AlertStatus = "sent"
	AlertStatusFailed       AlertStatus = "failed"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
)

// allowedFrom lists, for each target status, the statuses it may be entered from.
// Acknowledgement is accepted from any state, including itself, so it is idempotent.
var allowedFrom = map[AlertStatus][]AlertStatus{
	AlertStatusSent:         {AlertStatusPending},
	AlertStatusFailed:       {AlertStatusPending},
	AlertStatusAcknowledged: {AlertStatusPending, AlertStatusSent, AlertStatusFailed, AlertStatusAcknowledged},
}

// AllowedFrom returns the statuses from which to may be entered.
func AllowedFrom(to AlertStatus) []AlertStatus {
	return allowedFrom[to]
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to AlertStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// AlertPayload is the channel-specific data carried with an alert.
type AlertPayload struct {
	EvidenceURL string        `json:"evidence_url,omitempty"`
	FaceIDs     []string      `json:"face_ids,omitempty"`
	Person      *PersonRef    `json:"person,omitempty"`
	Confidence  float64       `json:"confidence"`
	ChatReceipt *ChatReceipt  `json:"chat_receipt,omitempty"`
	Channels    []ChannelNote `json:"channels,omitempty"`
	SentAt      *time.Time    `json:"sent_at,omitempty"`
	Attributes  *Attributes   `json:"attributes,omitempty"`
}

// Attributes are the optional estimates relayed with an alert.
type Attributes struct {
	Age    *int    `json:"age,omitempty"`
	Gender *Gender `json:"gender,omitempty"`
}

// ChatReceipt records a successful chat relay delivery.
type ChatReceipt struct {
	ChatID      string `json:"chat_id"`
	MessageSent bool   `json:"message_sent"`
	PhotoSent   bool   `json:"photo_sent"`
}

// ChannelNote is the recorded outcome of one channel for one alert.
type ChannelNote struct {
	Channel string `json:"channel"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// AlertNotification is one user-facing notification derived from detection events.
type AlertNotification struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	Owner            uuid.UUID        `json:"owner" db:"user_id"`
	DetectionEventID uuid.UUID        `json:"detection_event_id" db:"detection_event_id"`
	Type             NotificationType `json:"type" db:"notification_type"`
	Severity         Severity         `json:"severity" db:"severity"`
	Message          string           `json:"message" db:"message"`
	CameraID         string           `json:"camera_id" db:"camera_id"`
	CameraName       string           `json:"camera_name" db:"camera_name"`
	Timestamp        time.Time        `json:"timestamp" db:"event_timestamp"`
	Payload          AlertPayload     `json:"payload" db:"notification_data"`
	Status           AlertStatus      `json:"status" db:"notification_status"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}
