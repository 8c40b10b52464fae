package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/your-org/fdalert/internal/auth"
	"github.com/your-org/fdalert/internal/models"
	"github.com/your-org/fdalert/pkg/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Acknowledge(ctx context.Context, owner, id uuid.UUID) error {
	return m.Called(owner, id).Error(0)
}

func (m *mockLedger) ListRecent(ctx context.Context, owner uuid.UUID, limit int) ([]models.AlertNotification, error) {
	args := m.Called(owner, limit)
	alerts, _ := args.Get(0).([]models.AlertNotification)
	return alerts, args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) ListRecentEvents(ctx context.Context, owner uuid.UUID, cameraID string, limit int) ([]models.DetectionEvent, error) {
	args := m.Called(owner, cameraID, limit)
	events, _ := args.Get(0).([]models.DetectionEvent)
	return events, args.Error(1)
}

type mockConfigs struct{ mock.Mock }

func (m *mockConfigs) GetConfig(ctx context.Context, owner uuid.UUID) (*models.Configuration, error) {
	args := m.Called(owner)
	cfg, _ := args.Get(0).(*models.Configuration)
	return cfg, args.Error(1)
}

func (m *mockConfigs) UpsertConfig(ctx context.Context, cfg *models.Configuration) (*models.Configuration, error) {
	args := m.Called(cfg)
	out, _ := args.Get(0).(*models.Configuration)
	return out, args.Error(1)
}

func (m *mockConfigs) SetPushPermission(ctx context.Context, owner uuid.UUID, decision models.PushPermission) (models.PushPermission, error) {
	args := m.Called(owner, decision)
	return args.Get(0).(models.PushPermission), args.Error(1)
}

type mockProducer struct{ mock.Mock }

func (m *mockProducer) PublishControl(cmd models.CameraCommand) error {
	return m.Called(cmd).Error(0)
}

func (m *mockProducer) PublishAlert(ctx context.Context, event *dto.WSEvent) error {
	return m.Called(event).Error(0)
}

func (m *mockProducer) PublishDetection(ctx context.Context, msg *models.DetectionMessage) error {
	return m.Called(msg).Error(0)
}

// serve runs one request through a router that carries the owner middleware.
func serve(owner uuid.UUID, register func(r gin.IRoutes), method, path, body string) *httptest.ResponseRecorder {
	r := gin.New()
	g := r.Group("/", auth.OwnerMiddleware())
	register(g)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Owner-ID", owner.String())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
