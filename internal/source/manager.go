// Package source is the worker side of detection intake. Results arrive from
// the queue and are fanned out into one processing lane per camera, so cameras
// run independently while each camera's results are handled in arrival order.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/internal/observability"
)

var (
	// ErrCameraInactive is returned by Deliver for cameras that are stopped
	// or were never started while unregistered cameras are refused.
	ErrCameraInactive = errors.New("camera not accepting detections")
	ErrNoCamera       = errors.New("detection without camera id")
)

// Handler receives every accepted detection, one call at a time per camera.
type Handler func(ctx context.Context, msg *models.DetectionMessage)

type Options struct {
	LaneBuffer int
	// AcceptUnregistered opens a lane on the first detection from a camera
	// that was never started explicitly. Cameras stopped by command stay closed.
	AcceptUnregistered bool
}

type laneKey struct {
	owner    uuid.UUID
	cameraID string
}

type lane struct {
	key       laneKey
	name      string
	streamURL string
	ch        chan *models.DetectionMessage
	quit      chan struct{}
	done      chan struct{}
	senders   sync.WaitGroup
	// prev is the stopped lane of the same camera still draining. The
	// new lane waits for it so a camera is never handled twice at once.
	prev *lane
}

// Manager manages per-camera detection lanes.
type Manager struct {
	ctx  context.Context
	opts Options

	mu       sync.RWMutex
	handler  Handler
	lanes    map[laneKey]*lane
	draining map[laneKey]*lane
	stopped  map[laneKey]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewManager(ctx context.Context, opts Options) *Manager {
	if opts.LaneBuffer <= 0 {
		opts.LaneBuffer = 16
	}
	return &Manager{
		ctx:      ctx,
		opts:     opts,
		lanes:    make(map[laneKey]*lane),
		draining: make(map[laneKey]*lane),
		stopped:  make(map[laneKey]struct{}),
	}
}

// OnDetection registers the handler for accepted detections. It replaces any
// previous handler; lanes pick up the change on their next message.
func (m *Manager) OnDetection(h Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// HandleCommand processes a camera control command.
func (m *Manager) HandleCommand(cmd models.CameraCommand) error {
	switch cmd.Action {
	case models.CameraActionStart:
		return m.StartDetection(cmd.Owner, cmd.CameraID, cmd.CameraName, cmd.StreamURL)
	case models.CameraActionStop:
		return m.StopDetection(cmd.Owner, cmd.CameraID)
	default:
		return fmt.Errorf("unknown action: %s", cmd.Action)
	}
}

// StartDetection opens the camera's lane. Starting a running camera only
// refreshes its name and stream handle.
func (m *Manager) StartDetection(owner uuid.UUID, cameraID, name, streamURL string) error {
	if cameraID == "" {
		return ErrNoCamera
	}
	key := laneKey{owner: owner, cameraID: cameraID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCameraInactive
	}
	delete(m.stopped, key)
	if l, ok := m.lanes[key]; ok {
		if name != "" {
			l.name = name
		}
		if streamURL != "" {
			l.streamURL = streamURL
		}
		return nil
	}
	m.openLocked(key, name, streamURL)
	slog.Info("camera detection started", "owner", owner, "camera_id", cameraID, "stream", streamURL)
	return nil
}

// StopDetection stops new detections from entering the camera's lane.
// Detections already queued on the lane are still processed.
func (m *Manager) StopDetection(owner uuid.UUID, cameraID string) error {
	key := laneKey{owner: owner, cameraID: cameraID}

	m.mu.Lock()
	m.stopped[key] = struct{}{}
	l, ok := m.lanes[key]
	if ok {
		delete(m.lanes, key)
		m.draining[key] = l
	}
	m.mu.Unlock()

	if !ok {
		return nil // Already stopped
	}
	close(l.quit)
	slog.Info("camera detection stopped", "owner", owner, "camera_id", cameraID)
	return nil
}

// Deliver routes a detection to its camera's lane, blocking while the lane
// buffer is full.
func (m *Manager) Deliver(ctx context.Context, msg *models.DetectionMessage) error {
	if msg.Result.CameraID == "" {
		return ErrNoCamera
	}

	l, err := m.acquire(laneKey{owner: msg.Owner, cameraID: msg.Result.CameraID})
	if err != nil {
		return err
	}
	defer l.senders.Done()

	select {
	case l.ch <- msg:
		return nil
	case <-l.quit:
		return ErrCameraInactive
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquire returns the lane for key with a sender registered on it.
func (m *Manager) acquire(key laneKey) (*lane, error) {
	m.mu.RLock()
	if l, ok := m.lanes[key]; ok {
		l.senders.Add(1)
		m.mu.RUnlock()
		return l, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lanes[key]
	if !ok {
		if _, stopped := m.stopped[key]; stopped || m.closed || !m.opts.AcceptUnregistered {
			return nil, ErrCameraInactive
		}
		l = m.openLocked(key, "", "")
		slog.Info("camera detection started on first result", "owner", key.owner, "camera_id", key.cameraID)
	}
	l.senders.Add(1)
	return l, nil
}

func (m *Manager) openLocked(key laneKey, name, streamURL string) *lane {
	l := &lane{
		key:       key,
		name:      name,
		streamURL: streamURL,
		ch:        make(chan *models.DetectionMessage, m.opts.LaneBuffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		prev:      m.draining[key],
	}
	m.lanes[key] = l
	m.wg.Add(1)
	observability.ActiveCameras.Inc()
	go m.run(l)
	return l
}

func (m *Manager) run(l *lane) {
	defer func() {
		m.mu.Lock()
		if m.draining[l.key] == l {
			delete(m.draining, l.key)
		}
		m.mu.Unlock()
		close(l.done)
		observability.ActiveCameras.Dec()
		m.wg.Done()
	}()

	if l.prev != nil {
		<-l.prev.done
		l.prev = nil
	}

	for {
		select {
		case msg := <-l.ch:
			m.handle(l, msg)
		case <-l.quit:
			// Senders registered before the stop either landed in the buffer
			// or saw quit; drain what landed.
			l.senders.Wait()
			for {
				select {
				case msg := <-l.ch:
					m.handle(l, msg)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) handle(l *lane, msg *models.DetectionMessage) {
	m.mu.RLock()
	h := m.handler
	name := l.name
	m.mu.RUnlock()

	if h == nil {
		slog.Warn("detection dropped, no handler registered", "camera_id", l.key.cameraID)
		return
	}
	if msg.CameraName == "" {
		msg.CameraName = name
	}
	if msg.CameraName == "" {
		msg.CameraName = msg.Result.CameraID
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("detection handler panic", "camera_id", l.key.cameraID, "panic", r)
		}
	}()
	h(m.ctx, msg)
}

// ActiveCount returns the number of open camera lanes.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lanes)
}

// StopAll closes every lane and waits for queued detections to finish.
// No lane opens afterwards.
func (m *Manager) StopAll() {
	m.mu.Lock()
	m.closed = true
	keys := make([]laneKey, 0, len(m.lanes))
	for key := range m.lanes {
		keys = append(keys, key)
	}
	m.mu.Unlock()

	for _, key := range keys {
		_ = m.StopDetection(key.owner, key.cameraID)
	}
	m.wg.Wait()
}
