// Package classify turns the faces of one detection result into alert intents.
package classify

import (
	"fmt"

	"github.com/your-org/fdalert/internal/models"
)

// HighConfidence is the unknown-face confidence at or above which an alert is high severity.
const HighConfidence = 0.9

// Intent is one alert the pipeline should raise.
type Intent struct {
	Type     models.NotificationType
	Severity models.Severity
	Message  string
	// Faces holds indices into the slice passed to Classify, in input order.
	Faces []int
	// MaxConfidence is the highest confidence among the contributing faces.
	MaxConfidence float64
}

// Lead returns the index of the contributing face with the highest confidence.
// Ties resolve to the earliest face.
func (in Intent) Lead(faces []models.DetectedFace) int {
	lead := in.Faces[0]
	for _, idx := range in.Faces[1:] {
		if faces[idx].Confidence > faces[lead].Confidence {
			lead = idx
		}
	}
	return lead
}

// Classify maps faces to intents. Output order is the unknown-person intent
// first, then one known-person intent per known face in input order. Faces
// under the configured confidence threshold do not contribute.
func Classify(faces []models.DetectedFace, cfg *models.Configuration) []Intent {
	if cfg == nil || !cfg.VisualAlertsEnabled {
		return nil
	}

	var unknown, known []int
	for i, f := range faces {
		if f.Confidence < cfg.ConfidenceThreshold {
			continue
		}
		if f.Known() {
			known = append(known, i)
		} else {
			unknown = append(unknown, i)
		}
	}

	intents := make([]Intent, 0, len(known)+1)

	if len(unknown) > 0 {
		maxConf := 0.0
		for _, idx := range unknown {
			if faces[idx].Confidence > maxConf {
				maxConf = faces[idx].Confidence
			}
		}
		intents = append(intents, Intent{
			Type:          models.NotificationUnknownPerson,
			Severity:      UnknownSeverity(maxConf),
			Message:       unknownMessage(len(unknown)),
			Faces:         unknown,
			MaxConfidence: maxConf,
		})
	}

	for _, idx := range known {
		f := faces[idx]
		intents = append(intents, Intent{
			Type:          models.NotificationKnownPerson,
			Severity:      models.SeverityLow,
			Message:       fmt.Sprintf("%s detected", f.MatchedPerson.Name),
			Faces:         []int{idx},
			MaxConfidence: f.Confidence,
		})
	}

	return intents
}

// UnknownSeverity derives the severity of an unknown-person alert from the
// highest contributing confidence.
func UnknownSeverity(maxConfidence float64) models.Severity {
	if maxConfidence >= HighConfidence {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}

func unknownMessage(n int) string {
	if n == 1 {
		return "1 unknown person detected"
	}
	return fmt.Sprintf("%d unknown people detected", n)
}
