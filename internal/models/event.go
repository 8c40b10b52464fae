package models

import (
	"time"

	"github.com/google/uuid"
)

// DetectionEvent is the durable record of one face within one detection result.
type DetectionEvent struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	Owner            uuid.UUID   `json:"owner" db:"user_id"`
	CameraID         string      `json:"camera_id" db:"camera_id"`
	CameraName       string      `json:"camera_name" db:"camera_name"`
	MatchedPerson    *PersonRef  `json:"matched_person,omitempty"`
	Confidence       float64     `json:"confidence" db:"confidence_score"`
	Age              *int        `json:"age,omitempty" db:"estimated_age"`
	Gender           *Gender     `json:"gender,omitempty" db:"estimated_gender"`
	BBox             BoundingBox `json:"bbox" db:"bounding_box"`
	Embedding        []float32   `json:"-" db:"embedding"`
	ScreenshotURL    *string     `json:"screenshot_url,omitempty" db:"screenshot_url"`
	Timestamp        time.Time   `json:"timestamp" db:"event_timestamp"`
	NotificationSent bool        `json:"notification_sent" db:"notification_sent"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// EvidenceRecord links an uploaded screenshot to the detection event it documents.
type EvidenceRecord struct {
	ID               uuid.UUID `json:"id" db:"id"`
	DetectionEventID uuid.UUID `json:"detection_event_id" db:"detection_event_id"`
	Owner            uuid.UUID `json:"owner" db:"user_id"`
	FileURL          string    `json:"file_url" db:"file_url"`
	FileType         string    `json:"file_type" db:"file_type"`
	MimeType         string    `json:"mime_type" db:"mime_type"`
	FileSize         int64     `json:"file_size" db:"file_size"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
