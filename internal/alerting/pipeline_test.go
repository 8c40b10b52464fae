package alerting

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fdalert/internal/cache"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/notify"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type harness struct {
	owner    uuid.UUID
	events   *fakeEventStore
	evidence *fakeEvidenceStore
	visual   *fakeChannel
	audio    *fakeChannel
	relay    *fakeChannel
	pipeline *Pipeline
	cfg      *models.Configuration
}

func newHarness(t *testing.T, extra ...*fakeChannel) *harness {
	t.Helper()
	h := &harness{
		owner:    uuid.New(),
		events:   newFakeEventStore(),
		evidence: &fakeEvidenceStore{},
		visual:   okChannel(notify.ChannelVisual),
		audio:    okChannel(notify.ChannelAudio),
		relay:    &fakeChannel{name: notify.ChannelChatRelay, status: notify.StatusOK},
	}
	cfg := models.DefaultConfiguration(h.owner)
	h.cfg = &cfg

	channels := []notify.Channel{h.visual, h.audio, h.relay}
	for _, ch := range extra {
		channels = append(channels, ch)
	}
	h.pipeline = NewPipeline(h.events, h.evidence, channels, nil, Options{
		ChannelTimeout: 200 * time.Millisecond,
		StoreTimeout:   time.Second,
	})
	return h
}

func (h *harness) run(result *models.FaceDetectionResult) *Summary {
	return h.pipeline.ProcessDetection(context.Background(), h.owner, result, "Front Door", h.cfg)
}

func face(id string, conf float64) models.DetectedFace {
	return models.DetectedFace{ID: id, Confidence: conf, BBox: models.BoundingBox{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.3}}
}

func knownFace(id, name string, conf float64) models.DetectedFace {
	f := face(id, conf)
	f.MatchedPerson = &models.PersonRef{ID: "person-" + id, Name: name}
	return f
}

func detection(faces ...models.DetectedFace) *models.FaceDetectionResult {
	return &models.FaceDetectionResult{
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		CameraID:  "cam-1",
		Faces:     faces,
	}
}

func TestTwoUnknownFacesScenario(t *testing.T) {
	h := newHarness(t)

	sum := h.run(detection(face("a", 0.95), face("b", 0.75)))

	require.NoError(t, sum.Err())
	assert.Len(t, h.events.events, 2)
	alerts := h.events.alertList()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.NotificationUnknownPerson, alerts[0].Type)
	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, "2 unknown people detected", alerts[0].Message)
	assert.Equal(t, models.AlertStatusSent, alerts[0].Status)
	assert.Equal(t, h.events.events[0].ID, alerts[0].DetectionEventID)
	assert.Equal(t, []string{"a", "b"}, alerts[0].Payload.FaceIDs)
	assert.InDelta(t, 0.95, alerts[0].Payload.Confidence, 1e-9)
}

func TestKnownFaceScenario(t *testing.T) {
	h := newHarness(t)

	sum := h.run(detection(knownFace("j", "Jane Smith", 0.88)))

	require.NoError(t, sum.Err())
	assert.Len(t, h.events.events, 1)
	alerts := h.events.alertList()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.NotificationKnownPerson, alerts[0].Type)
	assert.Equal(t, models.SeverityLow, alerts[0].Severity)
	assert.Equal(t, "Jane Smith detected", alerts[0].Message)
	assert.Equal(t, "Jane Smith", alerts[0].Payload.Person.Name)
	assert.Equal(t, "Jane Smith", h.events.events[0].MatchedPerson.Name)
}

func TestEvidenceUploadFailureIsPartial(t *testing.T) {
	h := newHarness(t)
	h.evidence.err = errors.New("bucket unreachable")
	result := detection(face("a", 0.95))
	result.Screenshot = pngHeader

	sum := h.run(result)

	assert.True(t, sum.Failed(StageEvidence))
	assert.True(t, sum.Partial())
	require.Len(t, h.events.events, 1)
	assert.Nil(t, h.events.events[0].ScreenshotURL)
	assert.Empty(t, h.events.evidence)
	alerts := h.events.alertList()
	require.Len(t, alerts, 1)
	assert.Empty(t, alerts[0].Payload.EvidenceURL)
	assert.Equal(t, models.AlertStatusSent, alerts[0].Status)
}

func TestEvidenceAttachedToTriggeringFacesOnly(t *testing.T) {
	h := newHarness(t)
	result := detection(face("low", 0.5), face("hit", 0.93))
	result.Screenshot = pngHeader

	sum := h.run(result)

	require.NoError(t, sum.Err())
	require.Len(t, h.evidence.paths, 1)
	assert.True(t, strings.HasPrefix(h.evidence.paths[0], h.owner.String()+"/cam-1/"))
	assert.True(t, strings.HasSuffix(h.evidence.paths[0], ".png"))
	assert.Equal(t, "image/png", h.evidence.types[0])

	require.Len(t, h.events.events, 2)
	assert.Nil(t, h.events.events[0].ScreenshotURL)
	require.NotNil(t, h.events.events[1].ScreenshotURL)
	assert.Equal(t, sum.EvidenceURL, *h.events.events[1].ScreenshotURL)

	require.Len(t, h.events.evidence, 1)
	rec := h.events.evidence[0]
	assert.Equal(t, h.events.events[1].ID, rec.DetectionEventID)
	assert.Equal(t, "screenshot", rec.FileType)
	assert.Equal(t, int64(len(pngHeader)), rec.FileSize)

	assert.Equal(t, sum.EvidenceURL, h.events.alertList()[0].Payload.EvidenceURL)
}

func TestNoEvidenceWithoutIntentsOrWhenDisabled(t *testing.T) {
	h := newHarness(t)
	below := detection(face("a", 0.3))
	below.Screenshot = pngHeader
	h.run(below)
	assert.Zero(t, h.evidence.uploads)

	h.cfg.AutoEvidenceCapture = false
	hit := detection(face("a", 0.95))
	hit.Screenshot = pngHeader
	h.run(hit)
	assert.Zero(t, h.evidence.uploads)
}

func TestChatRelayFailureDoesNotBlockOtherChannels(t *testing.T) {
	h := newHarness(t)
	h.relay.enabled = true
	h.relay.status = notify.StatusFailed
	h.relay.err = &notify.RelayError{StatusCode: 502, Description: "bad gateway"}

	sum := h.run(detection(face("a", 0.95)))

	require.Len(t, sum.Alerts, 1)
	statuses := outcomeStatuses(sum.Alerts[0].Outcomes)
	assert.Equal(t, notify.StatusOK, statuses[notify.ChannelVisual])
	assert.Equal(t, notify.StatusOK, statuses[notify.ChannelAudio])
	assert.Equal(t, notify.StatusFailed, statuses[notify.ChannelChatRelay])

	assert.Len(t, h.events.events, 1)
	assert.Equal(t, models.AlertStatusSent, h.events.alertList()[0].Status)
	assert.True(t, sum.Failed(StageDispatch))
	assert.True(t, sum.Partial())

	var relayErr *notify.RelayError
	assert.True(t, errors.As(sum.Err(), &relayErr))
}

func TestAllChannelsFailingMarksAlertFailed(t *testing.T) {
	h := newHarness(t)
	h.visual.status, h.visual.err = notify.StatusFailed, notify.ErrBusUnavailable
	h.audio.status = notify.StatusSkipped

	sum := h.run(detection(face("a", 0.8)))

	alert := h.events.alertList()[0]
	assert.Equal(t, models.AlertStatusFailed, alert.Status)
	assert.Nil(t, alert.Payload.SentAt)
	assert.False(t, h.events.events[0].NotificationSent)
	assert.ErrorIs(t, sum.Err(), notify.ErrBusUnavailable)
}

func TestAdvisoryOutcomeDoesNotDecideStatus(t *testing.T) {
	push := &fakeChannel{name: notify.ChannelBrowserPush, enabled: true, status: notify.StatusOK, advise: true}
	h := newHarness(t, push)
	h.visual.status, h.visual.err = notify.StatusFailed, notify.ErrBusUnavailable
	h.audio.enabled = false

	h.run(detection(face("a", 0.8)))

	alert := h.events.alertList()[0]
	assert.Equal(t, models.AlertStatusFailed, alert.Status)
	assert.Equal(t, []string{notify.ChannelBrowserPush, notify.ChannelVisual}, sortedChannels(alert.Payload.Channels))
}

func TestDisabledChannelIsNotAttempted(t *testing.T) {
	h := newHarness(t)

	h.run(detection(face("a", 0.8)))

	assert.Zero(t, h.relay.callCount())
	assert.Equal(t, []string{notify.ChannelAudio, notify.ChannelVisual}, sortedChannels(h.events.alertList()[0].Payload.Channels))
}

func TestSlowChannelTimesOut(t *testing.T) {
	h := newHarness(t)
	h.relay.enabled = true
	h.relay.delay = 5 * time.Second

	start := time.Now()
	sum := h.run(detection(face("a", 0.8)))

	assert.Less(t, time.Since(start), 2*time.Second)
	statuses := outcomeStatuses(sum.Alerts[0].Outcomes)
	assert.Equal(t, notify.StatusFailed, statuses[notify.ChannelChatRelay])
	assert.Equal(t, notify.StatusOK, statuses[notify.ChannelVisual])
	assert.ErrorIs(t, sum.Err(), context.DeadlineExceeded)
	assert.Equal(t, models.AlertStatusSent, h.events.alertList()[0].Status)
}

func TestLateChannelKeepsItsOwnAlert(t *testing.T) {
	h := newHarness(t)
	h.relay.enabled = true
	h.relay.stall = 400 * time.Millisecond
	h.relay.seen = make(chan models.AlertNotification, 1)

	sum := h.run(detection(face("a", 0.8)))
	require.Len(t, sum.Alerts, 1)
	final := sum.Alerts[0].Alert
	assert.Equal(t, models.AlertStatusSent, final.Status)
	assert.Len(t, final.Payload.Channels, 3)

	var late models.AlertNotification
	select {
	case late = <-h.relay.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("stalled channel never returned")
	}
	assert.Equal(t, final.ID, late.ID)
	assert.Equal(t, models.AlertStatusPending, late.Status)
	assert.Empty(t, late.Payload.Channels)
	assert.Equal(t, []string{"a"}, late.Payload.FaceIDs)
}

func TestChannelPanicIsContained(t *testing.T) {
	h := newHarness(t)
	h.audio.panics = true

	var sum *Summary
	require.NotPanics(t, func() { sum = h.run(detection(face("a", 0.8))) })

	statuses := outcomeStatuses(sum.Alerts[0].Outcomes)
	assert.Equal(t, notify.StatusFailed, statuses[notify.ChannelAudio])
	assert.Equal(t, models.AlertStatusSent, h.events.alertList()[0].Status)
}

func TestInvalidFaceRejectedOthersProcessed(t *testing.T) {
	h := newHarness(t)
	bad := face("bad", 1.4)

	sum := h.run(detection(bad, face("ok", 0.95)))

	require.Len(t, sum.Rejected, 1)
	assert.Equal(t, 0, sum.Rejected[0].Index)
	assert.ErrorIs(t, sum.Rejected[0].Err, models.ErrInvalidFace)
	assert.True(t, sum.Failed(StageValidate))
	assert.Len(t, h.events.events, 1)
	assert.Equal(t, "1 unknown person detected", h.events.alertList()[0].Message)
}

func TestNaNConfidenceFaceRejected(t *testing.T) {
	h := newHarness(t)

	sum := h.run(detection(face("nan", math.NaN())))

	require.Len(t, sum.Rejected, 1)
	assert.ErrorIs(t, sum.Rejected[0].Err, models.ErrInvalidFace)
	assert.Empty(t, h.events.events)
	assert.Empty(t, sum.Alerts)
}

func TestEventInsertFailureIsPerFace(t *testing.T) {
	h := newHarness(t)
	h.events.failEvent = func(_ int, ev *models.DetectionEvent) error {
		if ev.Confidence == 0.95 {
			return errors.New("connection reset")
		}
		return nil
	}

	sum := h.run(detection(face("a", 0.95), face("b", 0.85)))

	assert.True(t, sum.Failed(StageEvents))
	require.Len(t, sum.Unpersisted, 1)
	assert.Equal(t, "a", sum.Unpersisted[0].FaceID)
	require.Len(t, h.events.events, 1)
	alert := h.events.alertList()[0]
	assert.Equal(t, h.events.events[0].ID, alert.DetectionEventID)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
}

func TestSyntheticEventWhenNoneAreStored(t *testing.T) {
	h := newHarness(t)
	h.events.failEvent = func(n int, _ *models.DetectionEvent) error {
		if n == 1 {
			return errors.New("timeout")
		}
		return nil
	}

	sum := h.run(detection(face("a", 0.95)))

	assert.Empty(t, sum.Events)
	require.Len(t, h.events.events, 1)
	alert := h.events.alertList()[0]
	assert.Equal(t, h.events.events[0].ID, alert.DetectionEventID)
	assert.Equal(t, models.AlertStatusSent, alert.Status)
}

func TestAlertWithoutAnyEventReference(t *testing.T) {
	h := newHarness(t)
	h.events.failEvent = func(int, *models.DetectionEvent) error { return errors.New("db down") }

	sum := h.run(detection(face("a", 0.95)))

	assert.True(t, sum.Failed(StageEvents))
	assert.True(t, sum.Failed(StageAlerts))
	alerts := h.events.alertList()
	require.Len(t, alerts, 1)
	assert.Equal(t, uuid.Nil, alerts[0].DetectionEventID)
	assert.Equal(t, 1, h.visual.callCount())
}

func TestAlertStoreFailureSkipsDispatch(t *testing.T) {
	h := newHarness(t)
	h.events.failAlert = errors.New("insert failed")

	sum := h.run(detection(face("a", 0.95)))

	assert.True(t, sum.Failed(StageAlerts))
	assert.True(t, sum.Partial())
	assert.Empty(t, sum.Alerts)
	assert.Zero(t, h.visual.callCount())
	assert.Len(t, h.events.events, 1)
}

func TestMissingConfigurationSkips(t *testing.T) {
	h := newHarness(t)

	sum := h.pipeline.ProcessDetection(context.Background(), h.owner, detection(face("a", 0.95)), "Front Door", nil)

	assert.True(t, sum.Skipped)
	assert.NoError(t, sum.Err())
	assert.Empty(t, h.events.events)
}

func TestBelowThresholdPersistsWithoutAlerts(t *testing.T) {
	h := newHarness(t)

	sum := h.run(detection(face("a", 0.4), knownFace("k", "Bob", 0.5)))

	require.NoError(t, sum.Err())
	assert.Len(t, h.events.events, 2)
	assert.Empty(t, h.events.alertList())
	assert.Zero(t, h.visual.callCount())
}

func TestVisualDisabledPersistsWithoutAlerts(t *testing.T) {
	h := newHarness(t)
	h.cfg.VisualAlertsEnabled = false

	h.run(detection(face("a", 0.99)))

	assert.Len(t, h.events.events, 1)
	assert.Empty(t, h.events.alertList())
}

func TestAgeAndGenderFlags(t *testing.T) {
	h := newHarness(t)
	f := knownFace("k", "Jane Smith", 0.9)
	age := 41
	gender := models.GenderFemale
	f.Age, f.Gender = &age, &gender
	f.Embedding = []float32{0.1, 0.2}

	h.run(detection(f))
	ev := h.events.events[0]
	require.NotNil(t, ev.Age)
	assert.Equal(t, 41, *ev.Age)
	require.NotNil(t, h.events.alertList()[0].Payload.Attributes)
	assert.Nil(t, ev.Embedding)

	h.cfg.AgeDetectionEnabled = false
	h.cfg.GenderDetectionEnabled = false
	h.run(detection(f))
	ev = h.events.events[1]
	assert.Nil(t, ev.Age)
	assert.Nil(t, ev.Gender)
	assert.Nil(t, h.events.alertList()[1].Payload.Attributes)
}

func TestStoreEmbeddingsOption(t *testing.T) {
	h := newHarness(t)
	h.pipeline.opts.StoreEmbeddings = true
	f := face("a", 0.5)
	f.Embedding = []float32{0.1, 0.2, 0.3}

	h.run(detection(f))

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, h.events.events[0].Embedding)
}

func TestEventsMarkedNotified(t *testing.T) {
	h := newHarness(t)

	h.run(detection(face("a", 0.95), face("b", 0.3)))

	require.Len(t, h.events.events, 2)
	assert.True(t, h.events.events[0].NotificationSent)
	assert.False(t, h.events.events[1].NotificationSent)
}

func TestEventsInsertedInFaceOrder(t *testing.T) {
	h := newHarness(t)
	faces := []models.DetectedFace{face("a", 0.8), knownFace("b", "Bob", 0.9), face("c", 0.71), face("d", 0.2)}

	h.run(detection(faces...))

	require.Len(t, h.events.events, len(faces))
	for i, ev := range h.events.events {
		assert.Equal(t, faces[i].Confidence, ev.Confidence)
	}
}

func TestFinalizeDoesNotRegressAcknowledged(t *testing.T) {
	h := newHarness(t)
	h.events.onCreate = func(a *models.AlertNotification) {
		a.Status = models.AlertStatusAcknowledged
	}

	sum := h.run(detection(face("a", 0.95)))

	require.Len(t, sum.Alerts, 1)
	assert.False(t, sum.Alerts[0].Applied)
	assert.Equal(t, models.AlertStatusAcknowledged, h.events.alertList()[0].Status)
	assert.NoError(t, sum.Err())
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	h := newHarness(t)
	h.pipeline.cooldown = NewCooldown(cache.NewMemoryProvider(), time.Minute)

	first := h.run(detection(face("a", 0.95), knownFace("k", "Jane", 0.9)))
	second := h.run(detection(face("b", 0.96), knownFace("k", "Jane", 0.9)))
	other := h.run(detection(knownFace("m", "Mark", 0.9)))

	assert.Len(t, first.Alerts, 2)
	assert.Empty(t, second.Alerts)
	assert.Equal(t, 2, second.Suppressed)
	assert.Len(t, other.Alerts, 1)
	assert.Len(t, h.events.events, 5)
}

type failingProvider struct{ cache.NoopProvider }

func (failingProvider) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestFailedAlertInsertReleasesCooldown(t *testing.T) {
	h := newHarness(t)
	h.pipeline.cooldown = NewCooldown(cache.NewMemoryProvider(), time.Minute)
	h.events.failAlert = errors.New("insert failed")

	first := h.run(detection(face("a", 0.95), knownFace("k", "Jane", 0.9)))
	require.Empty(t, first.Alerts)
	assert.True(t, first.Failed(StageAlerts))
	assert.False(t, first.Failed(StageCooldown))

	h.events.failAlert = nil
	second := h.run(detection(face("b", 0.95), knownFace("k", "Jane", 0.9)))
	assert.Len(t, second.Alerts, 2)
	assert.Zero(t, second.Suppressed)

	third := h.run(detection(face("c", 0.95)))
	assert.Empty(t, third.Alerts)
	assert.Equal(t, 1, third.Suppressed)
}

func TestCooldownFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.pipeline.cooldown = NewCooldown(failingProvider{}, time.Minute)

	sum := h.run(detection(face("a", 0.95)))

	assert.Len(t, sum.Alerts, 1)
	assert.True(t, sum.Failed(StageCooldown))
}

func TestEventCountMatchesFaceCount(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for run := 0; run < 50; run++ {
		h := newHarness(t)
		n := rng.Intn(6)
		faces := make([]models.DetectedFace, n)
		for i := range faces {
			if rng.Intn(2) == 0 {
				faces[i] = face(uuid.NewString(), rng.Float64())
			} else {
				faces[i] = knownFace(uuid.NewString(), "P", rng.Float64())
			}
		}

		sum := h.run(detection(faces...))

		assert.Len(t, h.events.events, n)
		assert.Len(t, sum.Events, n)
		for _, a := range h.events.alertList() {
			if a.Type == models.NotificationKnownPerson {
				assert.Equal(t, models.SeverityLow, a.Severity)
			}
		}
	}
}

func TestSummaryErrNamesStage(t *testing.T) {
	sum := newSummary(uuid.New(), "cam")
	assert.NoError(t, sum.Err())
	assert.False(t, sum.Partial())

	sum.fail(StageEvidence, errors.New("boom"))
	assert.EqualError(t, sum.Err(), "evidence: boom")
	assert.False(t, sum.Partial())

	sum.Events = append(sum.Events, &models.DetectionEvent{})
	assert.True(t, sum.Partial())
}

func TestGuardRecoversPanic(t *testing.T) {
	sum := newSummary(uuid.New(), "cam")
	sum.guard(StageEvents, func() error { panic("kaboom") })
	assert.ErrorContains(t, sum.Stages[StageEvents], "kaboom")
}
