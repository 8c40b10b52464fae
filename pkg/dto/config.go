package dto

// ConfigRequest is the body of PUT /v1/config. Omitted fields keep their
// current value.
type ConfigRequest struct {
	ConfidenceThreshold    *float64 `json:"confidence_threshold" binding:"omitempty,gte=0,lte=1"`
	VisualAlertsEnabled    *bool    `json:"visual_alerts_enabled"`
	AudioAlertsEnabled     *bool    `json:"audio_alerts_enabled"`
	BrowserPushEnabled     *bool    `json:"browser_push_enabled"`
	ChatRelayEnabled       *bool    `json:"telegram_notifications_enabled"`
	ChatBotToken           *string  `json:"telegram_bot_token"`
	ChatID                 *string  `json:"telegram_chat_id"`
	AgeDetectionEnabled    *bool    `json:"age_detection_enabled"`
	GenderDetectionEnabled *bool    `json:"gender_detection_enabled"`
	AutoEvidenceCapture    *bool    `json:"auto_evidence_capture"`
}

type ConfigResponse struct {
	ConfidenceThreshold    float64 `json:"confidence_threshold"`
	VisualAlertsEnabled    bool    `json:"visual_alerts_enabled"`
	AudioAlertsEnabled     bool    `json:"audio_alerts_enabled"`
	BrowserPushEnabled     bool    `json:"browser_push_enabled"`
	ChatRelayEnabled       bool    `json:"telegram_notifications_enabled"`
	ChatRelayConfigured    bool    `json:"telegram_configured"`
	ChatID                 string  `json:"telegram_chat_id,omitempty"`
	AgeDetectionEnabled    bool    `json:"age_detection_enabled"`
	GenderDetectionEnabled bool    `json:"gender_detection_enabled"`
	AutoEvidenceCapture    bool    `json:"auto_evidence_capture"`
	PushPermission         string  `json:"push_permission"`
	UpdatedAt              string  `json:"updated_at,omitempty"`
}

type PermissionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=granted denied"`
}

type PermissionResponse struct {
	Permission string `json:"permission"`
}
