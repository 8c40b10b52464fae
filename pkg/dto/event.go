package dto

import "github.com/google/uuid"

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type EventResponse struct {
	ID               uuid.UUID   `json:"id"`
	CameraID         string      `json:"camera_id"`
	CameraName       string      `json:"camera_name"`
	PersonID         string      `json:"person_id,omitempty"`
	PersonName       string      `json:"person_name,omitempty"`
	Confidence       float64     `json:"confidence_score"`
	Age              *int        `json:"estimated_age,omitempty"`
	Gender           string      `json:"estimated_gender,omitempty"`
	BBox             BoundingBox `json:"bounding_box"`
	ScreenshotURL    string      `json:"screenshot_url,omitempty"`
	Timestamp        string      `json:"timestamp"`
	NotificationSent bool        `json:"notification_sent"`
	CreatedAt        string      `json:"created_at"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

type EventQuery struct {
	CameraID string `form:"camera_id"`
	Limit    int    `form:"limit"`
}
