package dto

type PersonRef struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type FaceRequest struct {
	ID            string      `json:"id"`
	BBox          BoundingBox `json:"bbox"`
	Confidence    float64     `json:"confidence"`
	MatchedPerson *PersonRef  `json:"matched_person,omitempty"`
	Age           *int        `json:"age,omitempty"`
	Gender        *string     `json:"gender,omitempty"`
	Embedding     []float32   `json:"embedding,omitempty"`
}

// DetectionRequest is the body of POST /v1/detections. Screenshot is base64
// encoded by encoding/json.
type DetectionRequest struct {
	CameraID   string        `json:"camera_id" binding:"required"`
	CameraName string        `json:"camera_name"`
	Timestamp  string        `json:"timestamp"`
	Faces      []FaceRequest `json:"faces"`
	Screenshot []byte        `json:"screenshot,omitempty"`
}

type DetectionAccepted struct {
	CameraID string `json:"camera_id"`
	Faces    int    `json:"faces"`
	Status   string `json:"status"`
}

type CameraRequest struct {
	Name      string `json:"name"`
	StreamURL string `json:"stream_url"`
}

type CameraResponse struct {
	CameraID string `json:"camera_id"`
	Status   string `json:"status"`
}
