package models

import "github.com/google/uuid"

type CameraAction string

const (
	CameraActionStart CameraAction = "start"
	CameraActionStop  CameraAction = "stop"
)

// CameraCommand starts or stops detection intake for one camera. It is
// published by the API on the control subject and handled by the worker.
type CameraCommand struct {
	Action     CameraAction `json:"action"`
	Owner      uuid.UUID    `json:"owner"`
	CameraID   string       `json:"camera_id"`
	CameraName string       `json:"camera_name,omitempty"`
	StreamURL  string       `json:"stream_url,omitempty"`
}
