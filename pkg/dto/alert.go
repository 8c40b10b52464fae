package dto

import "github.com/google/uuid"

type ChatReceipt struct {
	ChatID      string `json:"chat_id"`
	MessageSent bool   `json:"message_sent"`
	PhotoSent   bool   `json:"photo_sent"`
}

type ChannelOutcome struct {
	Channel string `json:"channel"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type AlertResponse struct {
	ID               uuid.UUID        `json:"id"`
	DetectionEventID uuid.UUID        `json:"detection_event_id"`
	Type             string           `json:"notification_type"`
	Severity         string           `json:"severity"`
	Message          string           `json:"message"`
	CameraID         string           `json:"camera_id"`
	CameraName       string           `json:"camera_name"`
	Timestamp        string           `json:"timestamp"`
	Status           string           `json:"status"`
	EvidenceURL      string           `json:"evidence_url,omitempty"`
	Confidence       float64          `json:"confidence"`
	PersonName       string           `json:"person_name,omitempty"`
	ChatReceipt      *ChatReceipt     `json:"chat_receipt,omitempty"`
	Channels         []ChannelOutcome `json:"channels,omitempty"`
	CreatedAt        string           `json:"created_at"`
}

type AlertListResponse struct {
	Alerts []AlertResponse `json:"alerts"`
	Total  int             `json:"total"`
}
