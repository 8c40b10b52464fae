package classify

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fdalert/internal/models"
)

func testConfig() *models.Configuration {
	cfg := models.DefaultConfiguration(uuid.New())
	return &cfg
}

func unknownFace(id string, conf float64) models.DetectedFace {
	return models.DetectedFace{ID: id, Confidence: conf, BBox: models.BoundingBox{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}}
}

func knownFace(id, name string, conf float64) models.DetectedFace {
	f := unknownFace(id, conf)
	f.MatchedPerson = &models.PersonRef{ID: "p-" + id, Name: name}
	return f
}

func TestClassifyTwoUnknownFaces(t *testing.T) {
	faces := []models.DetectedFace{unknownFace("a", 0.95), unknownFace("b", 0.75)}

	intents := Classify(faces, testConfig())

	require.Len(t, intents, 1)
	assert.Equal(t, models.NotificationUnknownPerson, intents[0].Type)
	assert.Equal(t, models.SeverityHigh, intents[0].Severity)
	assert.Equal(t, "2 unknown people detected", intents[0].Message)
	assert.Equal(t, []int{0, 1}, intents[0].Faces)
	assert.InDelta(t, 0.95, intents[0].MaxConfidence, 1e-9)
}

func TestClassifyKnownFace(t *testing.T) {
	faces := []models.DetectedFace{knownFace("a", "Jane Smith", 0.88)}

	intents := Classify(faces, testConfig())

	require.Len(t, intents, 1)
	assert.Equal(t, models.NotificationKnownPerson, intents[0].Type)
	assert.Equal(t, models.SeverityLow, intents[0].Severity)
	assert.Equal(t, "Jane Smith detected", intents[0].Message)
}

func TestClassifySingleUnknownMedium(t *testing.T) {
	intents := Classify([]models.DetectedFace{unknownFace("a", 0.8)}, testConfig())

	require.Len(t, intents, 1)
	assert.Equal(t, models.SeverityMedium, intents[0].Severity)
	assert.Equal(t, "1 unknown person detected", intents[0].Message)
}

func TestClassifyOrdering(t *testing.T) {
	faces := []models.DetectedFace{
		knownFace("k1", "Bob", 0.8),
		unknownFace("u1", 0.72),
		knownFace("k2", "Alice", 0.99),
		unknownFace("u2", 0.91),
	}

	intents := Classify(faces, testConfig())

	require.Len(t, intents, 3)
	assert.Equal(t, models.NotificationUnknownPerson, intents[0].Type)
	assert.Equal(t, []int{1, 3}, intents[0].Faces)
	assert.Equal(t, "Bob detected", intents[1].Message)
	assert.Equal(t, "Alice detected", intents[2].Message)
}

func TestClassifyThresholdAndDisabledVisual(t *testing.T) {
	cfg := testConfig()
	faces := []models.DetectedFace{unknownFace("a", 0.5), knownFace("b", "Jane", 0.6)}

	assert.Empty(t, Classify(faces, cfg))

	cfg.ConfidenceThreshold = 0.4
	assert.Len(t, Classify(faces, cfg), 2)

	cfg.VisualAlertsEnabled = false
	assert.Empty(t, Classify(faces, cfg))

	assert.Empty(t, Classify(faces, nil))
}

func TestIntentLead(t *testing.T) {
	faces := []models.DetectedFace{unknownFace("a", 0.8), unknownFace("b", 0.93), unknownFace("c", 0.93)}
	in := Intent{Faces: []int{0, 1, 2}}
	assert.Equal(t, 1, in.Lead(faces))
}

func TestSeverityProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := testConfig()

	for i := 0; i < 500; i++ {
		conf := cfg.ConfidenceThreshold + rng.Float64()*(1-cfg.ConfidenceThreshold)

		unknown := Classify([]models.DetectedFace{unknownFace("u", conf)}, cfg)
		require.Len(t, unknown, 1)
		if conf >= HighConfidence {
			assert.Equal(t, models.SeverityHigh, unknown[0].Severity, "confidence %v", conf)
		} else {
			assert.Equal(t, models.SeverityMedium, unknown[0].Severity, "confidence %v", conf)
		}

		known := Classify([]models.DetectedFace{knownFace("k", "Jane", conf)}, cfg)
		require.Len(t, known, 1)
		assert.Equal(t, models.SeverityLow, known[0].Severity)
	}
}

func TestUnknownSeverityBoundary(t *testing.T) {
	assert.Equal(t, models.SeverityHigh, UnknownSeverity(0.9))
	assert.Equal(t, models.SeverityMedium, UnknownSeverity(math.Nextafter(0.9, 0)))
	assert.Equal(t, models.SeverityHigh, UnknownSeverity(1))

	intents := Classify([]models.DetectedFace{unknownFace("edge", 0.9)}, testConfig())
	require.Len(t, intents, 1)
	assert.Equal(t, models.SeverityHigh, intents[0].Severity)
}
