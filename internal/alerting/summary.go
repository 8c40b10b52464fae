package alerting

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/notify"
)

// Stage names one fault-isolated step of ProcessDetection.
type Stage string

const (
	StageConfig         Stage = "config"
	StageValidate       Stage = "validate"
	StageCooldown       Stage = "cooldown"
	StageEvidence       Stage = "evidence"
	StageEvents         Stage = "events"
	StageEvidenceRecord Stage = "evidence_record"
	StageAlerts         Stage = "alerts"
	StageDispatch       Stage = "dispatch"
	StageFinalize       Stage = "finalize"
)

// FaceFailure records a face that was rejected or whose event was not stored.
type FaceFailure struct {
	Index  int
	FaceID string
	Err    error
}

// AlertResult is the dispatch record of one created alert.
type AlertResult struct {
	Alert    *models.AlertNotification
	Outcomes []notify.Outcome
	// Applied is false when the final status was not written, either because
	// the write failed or the alert had already left pending.
	Applied bool
}

// Summary aggregates what one ProcessDetection call did. Failures never
// escape the pipeline as panics or returned errors; they land here.
type Summary struct {
	Owner    uuid.UUID
	CameraID string
	// Skipped is set when the owner has no configuration row.
	Skipped bool

	Faces       int
	Rejected    []FaceFailure
	Events      []*models.DetectionEvent
	Unpersisted []FaceFailure
	EvidenceURL string
	Suppressed  int
	Alerts      []AlertResult

	Stages map[Stage]error
}

func newSummary(owner uuid.UUID, cameraID string) *Summary {
	return &Summary{Owner: owner, CameraID: cameraID, Stages: make(map[Stage]error)}
}

func (s *Summary) fail(stage Stage, err error) {
	if err == nil {
		return
	}
	s.Stages[stage] = errors.Join(s.Stages[stage], err)
}

// guard runs fn and records its error, or a recovered panic, under stage.
func (s *Summary) guard(stage Stage, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(stage, fmt.Errorf("panic: %v", r))
		}
	}()
	s.fail(stage, fn())
}

// Failed reports whether stage recorded a failure.
func (s *Summary) Failed(stage Stage) bool {
	return s.Stages[stage] != nil
}

// Err joins every stage failure, naming the stage. It is nil on full success.
func (s *Summary) Err() error {
	var errs []error
	for _, stage := range []Stage{
		StageConfig, StageValidate, StageCooldown, StageEvidence, StageEvents,
		StageEvidenceRecord, StageAlerts, StageDispatch, StageFinalize,
	} {
		if err := s.Stages[stage]; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", stage, err))
		}
	}
	return errors.Join(errs...)
}

// Partial reports that some stage failed while something was still recorded
// or delivered.
func (s *Summary) Partial() bool {
	if s.Err() == nil {
		return false
	}
	return len(s.Events) > 0 || len(s.Alerts) > 0
}
