package dto

import "github.com/google/uuid"

type BrowserNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// WSEvent is a WebSocket message for real-time alert delivery. It travels
// from the worker to the API over the ALERTS stream.
type WSEvent struct {
	Type         string               `json:"type"` // alert, browser_notification, camera_status
	Owner        uuid.UUID            `json:"owner"`
	CameraID     string               `json:"camera_id,omitempty"`
	Alert        *AlertResponse       `json:"alert,omitempty"`
	Notification *BrowserNotification `json:"notification,omitempty"`
	Status       string               `json:"status,omitempty"`
}

const (
	WSEventAlert        = "alert"
	WSEventNotification = "browser_notification"
	WSEventCameraStatus = "camera_status"
)
