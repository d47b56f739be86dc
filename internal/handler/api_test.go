package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/handler"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/service"
)

const (
	organizerID = "7"
	speakerID   = "42"
)

type testAPI struct {
	app     *fiber.App
	db      *gorm.DB
	eventID uint
	roomA   models.Place
	roomB   models.Place
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func intPtr(v int) *int {
	return &v
}

// newTestAPI wires the real services over an in-memory database. Callers pick
// their identity with the X-Test-User and X-Test-Role headers.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.Schema()...))
	t.Cleanup(func() { _ = sqlDB.Close() })

	company := models.Company{Name: "Acme"}
	require.NoError(t, db.Create(&company).Error)
	location := models.Location{CompanyID: company.ID, Name: "Sede Central"}
	require.NoError(t, db.Create(&location).Error)
	api := &testAPI{
		db:    db,
		roomA: models.Place{LocationID: location.ID, Name: "Room A", Capacity: intPtr(30)},
		roomB: models.Place{LocationID: location.ID, Name: "Room B", Capacity: intPtr(100)},
	}
	require.NoError(t, db.Create(&api.roomA).Error)
	require.NoError(t, db.Create(&api.roomB).Error)

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	eventRepo := repository.NewEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	venues := service.NewVenueService(repository.NewVenueRepository(db), nil, time.Minute, 0, logger)
	schedule := service.NewScheduleValidator(venues, logger)
	audit := service.NewAuditService(repository.NewAuditLogRepository(db), validate, logger)
	events := service.NewEventService(eventRepo, schedule, audit, validate, 0, logger)
	notifications := service.NewNotificationService(notificationRepo, nil, "", nil, validate, 0, logger)
	publisher := service.NewBrokerPublisher(nil, nil, "agenda")
	requests := service.NewChangeRequestService(notificationRepo, repository.NewAssignmentRepository(db), eventRepo, schedule, notifications, publisher, audit, validate, 0, logger)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user := c.Get("X-Test-User"); user != "" {
			c.Locals("user_id", user)
		}
		if role := c.Get("X-Test-Role"); role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	api.app = app

	root := app.Group("/api/v1")
	handler.NewVenueHandler(venues, logger).Register(root)
	handler.NewEventHandler(events, logger).Register(root.Group("/events"), root.Group("/activities"))
	handler.NewNotificationHandler(notifications, requests, logger, time.Second).Register(root.Group("/notifications"))
	handler.NewSpeakerHandler(requests, logger).Register(root.Group("/speaker"))
	root.Get("/audit-logs", handler.NewAuditHandler(audit, logger).List)

	var created struct {
		ID uint `json:"id"`
	}
	resp := api.do(t, http.MethodPost, "/api/v1/events", organizerID, "organizer", map[string]interface{}{
		"company_id":   company.ID,
		"titulo":       "Congreso",
		"descripcion":  "Anual",
		"fecha_inicio": "2025-06-01",
		"fecha_fin":    "2025-06-02",
		"modalidad":    "Presencial",
		"lugar":        api.roomB.ID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decodeData(t, resp, &created)
	api.eventID = created.ID

	return api
}

func (a *testAPI) do(t *testing.T, method, path, user, role string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
		req.Header.Set("X-Test-Role", role)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (a *testAPI) activityBody(placeIDs []uint, headcount int) map[string]interface{} {
	return map[string]interface{}{
		"titulo":          "Taller",
		"descripcion":     "Práctico",
		"fecha_actividad": "2025-06-01",
		"hora_inicio":     "09:00",
		"hora_fin":        "10:00",
		"modalidad":       "presencial",
		"lugares":         placeIDs,
		"cupos":           headcount,
	}
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func decodeData(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body := decodeEnvelope(t, resp)
	require.True(t, body.Success, body.Message)
	require.NoError(t, json.Unmarshal(body.Data, target))
}

func (a *testAPI) createActivity(t *testing.T) uint {
	t.Helper()
	resp := a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/events/%d/activities", a.eventID), organizerID, "organizer",
		a.activityBody([]uint{a.roomB.ID}, 40))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var activity struct {
		ID uint `json:"id"`
	}
	decodeData(t, resp, &activity)
	return activity.ID
}

func (a *testAPI) submit(t *testing.T, activityID uint, proposal string) uint {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/speaker/requests", speakerID, "speaker", map[string]interface{}{
		"activity_id":   activityID,
		"justificacion": "vuelo retrasado",
		"propuesta":     json.RawMessage(proposal),
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var submitted struct {
		NotificationID uint `json:"notification_id"`
	}
	decodeData(t, resp, &submitted)
	require.NotZero(t, submitted.NotificationID)
	return submitted.NotificationID
}
