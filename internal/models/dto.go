package models

import (
	"time"

	"github.com/your-org/fdalert/pkg/dto"
)

// ToResponse converts an alert into its wire shape.
func (a *AlertNotification) ToResponse() dto.AlertResponse {
	r := dto.AlertResponse{
		ID:               a.ID,
		DetectionEventID: a.DetectionEventID,
		Type:             string(a.Type),
		Severity:         string(a.Severity),
		Message:          a.Message,
		CameraID:         a.CameraID,
		CameraName:       a.CameraName,
		Timestamp:        a.Timestamp.UTC().Format(time.RFC3339),
		Status:           string(a.Status),
		EvidenceURL:      a.Payload.EvidenceURL,
		Confidence:       a.Payload.Confidence,
	}
	if !a.CreatedAt.IsZero() {
		r.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	if a.Payload.Person != nil {
		r.PersonName = a.Payload.Person.Name
	}
	if rc := a.Payload.ChatReceipt; rc != nil {
		r.ChatReceipt = &dto.ChatReceipt{ChatID: rc.ChatID, MessageSent: rc.MessageSent, PhotoSent: rc.PhotoSent}
	}
	for _, ch := range a.Payload.Channels {
		r.Channels = append(r.Channels, dto.ChannelOutcome{Channel: ch.Channel, Outcome: ch.Outcome, Error: ch.Error})
	}
	return r
}

// ToResponse converts a detection event into its wire shape.
func (e *DetectionEvent) ToResponse() dto.EventResponse {
	r := dto.EventResponse{
		ID:               e.ID,
		CameraID:         e.CameraID,
		CameraName:       e.CameraName,
		Confidence:       e.Confidence,
		Age:              e.Age,
		BBox:             dto.BoundingBox{X: e.BBox.X, Y: e.BBox.Y, Width: e.BBox.Width, Height: e.BBox.Height},
		Timestamp:        e.Timestamp.UTC().Format(time.RFC3339),
		NotificationSent: e.NotificationSent,
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.MatchedPerson != nil {
		r.PersonID = e.MatchedPerson.ID
		r.PersonName = e.MatchedPerson.Name
	}
	if e.Gender != nil {
		r.Gender = string(*e.Gender)
	}
	if e.ScreenshotURL != nil {
		r.ScreenshotURL = *e.ScreenshotURL
	}
	return r
}

// ToResponse converts a configuration into its wire shape. The bot token is
// never returned.
func (c *Configuration) ToResponse() dto.ConfigResponse {
	r := dto.ConfigResponse{
		ConfidenceThreshold:    c.ConfidenceThreshold,
		VisualAlertsEnabled:    c.VisualAlertsEnabled,
		AudioAlertsEnabled:     c.AudioAlertsEnabled,
		BrowserPushEnabled:     c.BrowserPushEnabled,
		ChatRelayEnabled:       c.ChatRelayEnabled,
		ChatRelayConfigured:    c.ChatRelayConfigured(),
		ChatID:                 c.ChatID,
		AgeDetectionEnabled:    c.AgeDetectionEnabled,
		GenderDetectionEnabled: c.GenderDetectionEnabled,
		AutoEvidenceCapture:    c.AutoEvidenceCapture,
		PushPermission:         string(c.PushPermission),
	}
	if !c.UpdatedAt.IsZero() {
		r.UpdatedAt = c.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return r
}

// Apply overlays the non-nil fields of req onto c.
func (c *Configuration) Apply(req dto.ConfigRequest) {
	if req.ConfidenceThreshold != nil {
		c.ConfidenceThreshold = *req.ConfidenceThreshold
	}
	if req.VisualAlertsEnabled != nil {
		c.VisualAlertsEnabled = *req.VisualAlertsEnabled
	}
	if req.AudioAlertsEnabled != nil {
		c.AudioAlertsEnabled = *req.AudioAlertsEnabled
	}
	if req.BrowserPushEnabled != nil {
		c.BrowserPushEnabled = *req.BrowserPushEnabled
	}
	if req.ChatRelayEnabled != nil {
		c.ChatRelayEnabled = *req.ChatRelayEnabled
	}
	if req.ChatBotToken != nil {
		c.ChatBotToken = *req.ChatBotToken
	}
	if req.ChatID != nil {
		c.ChatID = *req.ChatID
	}
	if req.AgeDetectionEnabled != nil {
		c.AgeDetectionEnabled = *req.AgeDetectionEnabled
	}
	if req.GenderDetectionEnabled != nil {
		c.GenderDetectionEnabled = *req.GenderDetectionEnabled
	}
	if req.AutoEvidenceCapture != nil {
		c.AutoEvidenceCapture = *req.AutoEvidenceCapture
	}
}

// FaceFromRequest converts an ingest face into the model. It does not validate.
func FaceFromRequest(f dto.FaceRequest) DetectedFace {
	face := DetectedFace{
		ID:         f.ID,
		BBox:       BoundingBox{X: f.BBox.X, Y: f.BBox.Y, Width: f.BBox.Width, Height: f.BBox.Height},
		Confidence: f.Confidence,
		Age:        f.Age,
		Embedding:  f.Embedding,
	}
	if f.MatchedPerson != nil {
		face.MatchedPerson = &PersonRef{ID: f.MatchedPerson.ID, Name: f.MatchedPerson.Name}
	}
	if f.Gender != nil {
		g := Gender(*f.Gender)
		face.Gender = &g
	}
	return face
}
