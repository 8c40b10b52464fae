package models

import (
	"time"

	"github.com/google/uuid"
)

// PushPermission mirrors the browser notification permission states.
type PushPermission string

const (
	PushPermissionDefault PushPermission = "default"
	PushPermissionGranted PushPermission = "granted"
	PushPermissionDenied  PushPermission = "denied"
)

// Configuration is the per-owner alerting configuration. The pipeline treats
// it as an immutable snapshot for the duration of one call.
type Configuration struct {
	ID                     uuid.UUID      `json:"id" db:"id"`
	Owner                  uuid.UUID      `json:"owner" db:"user_id"`
	ConfidenceThreshold    float64        `json:"confidence_threshold" db:"confidence_threshold"`
	VisualAlertsEnabled    bool           `json:"visual_alerts_enabled" db:"visual_alerts_enabled"`
	AudioAlertsEnabled     bool           `json:"audio_alerts_enabled" db:"audio_alerts_enabled"`
	BrowserPushEnabled     bool           `json:"browser_push_enabled" db:"browser_push_enabled"`
	ChatRelayEnabled       bool           `json:"telegram_notifications_enabled" db:"telegram_notifications_enabled"`
	ChatBotToken           string         `json:"-" db:"telegram_bot_token"`
	ChatID                 string         `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	AgeDetectionEnabled    bool           `json:"age_detection_enabled" db:"age_detection_enabled"`
	GenderDetectionEnabled bool           `json:"gender_detection_enabled" db:"gender_detection_enabled"`
	AutoEvidenceCapture    bool           `json:"auto_evidence_capture" db:"auto_evidence_capture"`
	PushPermission         PushPermission `json:"push_permission" db:"push_permission"`
	UpdatedAt              time.Time      `json:"updated_at" db:"updated_at"`
}

// DefaultConfiguration returns the settings a new owner starts with.
func DefaultConfiguration(owner uuid.UUID) Configuration {
	return Configuration{
		Owner:                  owner,
		ConfidenceThreshold:    0.7,
		VisualAlertsEnabled:    true,
		AudioAlertsEnabled:     true,
		BrowserPushEnabled:     true,
		AgeDetectionEnabled:    true,
		GenderDetectionEnabled: true,
		AutoEvidenceCapture:    true,
		PushPermission:         PushPermissionDefault,
	}
}

// ChatRelayConfigured reports whether the chat relay is enabled and has credentials.
func (c *Configuration) ChatRelayConfigured() bool {
	return c.ChatRelayEnabled && c.ChatBotToken != "" && c.ChatID != ""
}
