package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidFace is returned for faces that fail validation before persistence.
var ErrInvalidFace = errors.New("invalid face")

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// BoundingBox is a face region expressed as fractions of the frame.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the box lies fully inside the unit square.
func (b BoundingBox) Valid() bool {
	// Written as ranges that must hold so NaN fails every comparison.
	return b.X >= 0 && b.Y >= 0 && b.Width >= 0 && b.Height >= 0 &&
		b.X+b.Width <= 1 && b.Y+b.Height <= 1
}

// PersonRef points at a known person the detector matched the face to.
type PersonRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DetectedFace is one localized detection within a frame.
type DetectedFace struct {
	ID            string      `json:"id"`
	BBox          BoundingBox `json:"bbox"`
	Confidence    float64     `json:"confidence"`
	MatchedPerson *PersonRef  `json:"matched_person,omitempty"`
	Age           *int        `json:"age,omitempty"`
	Gender        *Gender     `json:"gender,omitempty"`
	Embedding     []float32   `json:"embedding,omitempty"`
}

// Known reports whether the detector matched the face to a person.
func (f DetectedFace) Known() bool {
	return f.MatchedPerson != nil
}

// Validate checks the face invariants. The returned error wraps ErrInvalidFace.
func (f DetectedFace) Validate() error {
	if !(f.Confidence >= 0 && f.Confidence <= 1) {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidFace, f.Confidence)
	}
	if !f.BBox.Valid() {
		return fmt.Errorf("%w: bounding box %+v outside frame", ErrInvalidFace, f.BBox)
	}
	if f.Age != nil && *f.Age <= 0 {
		return fmt.Errorf("%w: age %d not positive", ErrInvalidFace, *f.Age)
	}
	if f.Gender != nil {
		switch *f.Gender {
		case GenderMale, GenderFemale, GenderUnknown:
		default:
			return fmt.Errorf("%w: gender %q", ErrInvalidFace, *f.Gender)
		}
	}
	return nil
}

// FaceDetectionResult is one detection cycle from one camera.
type FaceDetectionResult struct {
	Timestamp  time.Time      `json:"timestamp"`
	CameraID   string         `json:"camera_id"`
	Faces      []DetectedFace `json:"faces"`
	Screenshot []byte         `json:"screenshot,omitempty"` // encoded image, base64 on the wire
}

// DetectionMessage is the envelope published on the DETECTIONS stream.
type DetectionMessage struct {
	Owner      uuid.UUID           `json:"owner"`
	CameraName string              `json:"camera_name"`
	Result     FaceDetectionResult `json:"result"`
}
