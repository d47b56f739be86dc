package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps concurrent tests from tripping shared-cache table locks.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.Schema()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type recordingNotifier struct {
	mu        sync.Mutex
	delivered []models.Notification
	published []models.Notification
	repo      repository.NotificationRepository
}

func (r *recordingNotifier) Publish(ctx context.Context, notification *models.Notification) error {
	if err := r.repo.Create(ctx, notification); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, *notification)
	return nil
}

func (r *recordingNotifier) Deliver(ctx context.Context, notification models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, notification)
}

func (r *recordingNotifier) List(ctx context.Context, actor Actor, query dto.NotificationListQuery) ([]dto.NotificationResponse, error) {
	return nil, nil
}

func (r *recordingNotifier) Replay(ctx context.Context, recipientID string, afterID uint) ([]dto.NotificationResponse, error) {
	return nil, nil
}

func (r *recordingNotifier) Subscribe(recipientID string) (<-chan dto.NotificationResponse, func()) {
	ch := make(chan dto.NotificationResponse)
	return ch, func() {}
}

func (r *recordingNotifier) Start(ctx context.Context) {}

type recordingPublisher struct {
	mu     sync.Mutex
	events []AssignmentResolvedEvent
	err    error
}

func (p *recordingPublisher) PublishResolution(ctx context.Context, event AssignmentResolvedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

// scheduleFixture is the venue layout used across service tests: Acme owns
// "Sede Central" with Room A (30) and Room B (100); Globex owns a foreign room.
type scheduleFixture struct {
	db       *gorm.DB
	company  models.Company
	roomA    models.Place
	roomB    models.Place
	external models.Place
	event    models.Event

	venues        VenueService
	schedule      ScheduleValidator
	audit         AuditService
	events        EventService
	eventRepo     repository.EventRepository
	notifications repository.NotificationRepository
	assignments   repository.AssignmentRepository
	notifier      *recordingNotifier
	publisher     *recordingPublisher
	workflow      ChangeRequestService
}

var (
	organizer = Actor{ID: "7", Role: RoleOrganizer}
	speaker   = Actor{ID: "42", Role: RoleSpeaker}
	admin     = Actor{ID: "1", Role: RoleAdmin}
)

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()

	db := newServiceDB(t)
	f := &scheduleFixture{db: db, company: models.Company{Name: "Acme"}}
	other := models.Company{Name: "Globex"}
	require.NoError(t, db.Create(&f.company).Error)
	require.NoError(t, db.Create(&other).Error)

	location := models.Location{CompanyID: f.company.ID, Name: "Sede Central"}
	foreign := models.Location{CompanyID: other.ID, Name: "Globex HQ"}
	require.NoError(t, db.Create(&location).Error)
	require.NoError(t, db.Create(&foreign).Error)

	f.roomA = models.Place{LocationID: location.ID, Name: "Room A", Capacity: intPtr(30)}
	f.roomB = models.Place{LocationID: location.ID, Name: "Room B", Capacity: intPtr(100)}
	f.external = models.Place{LocationID: foreign.ID, Name: "Globex Room", Capacity: intPtr(500)}
	require.NoError(t, db.Create(&f.roomA).Error)
	require.NoError(t, db.Create(&f.roomB).Error)
	require.NoError(t, db.Create(&f.external).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	f.eventRepo = repository.NewEventRepository(db)
	f.notifications = repository.NewNotificationRepository(db)
	f.assignments = repository.NewAssignmentRepository(db)
	f.venues = NewVenueService(repository.NewVenueRepository(db), nil, time.Minute, 0, testLogger())
	f.schedule = NewScheduleValidator(f.venues, testLogger())
	f.audit = NewAuditService(repository.NewAuditLogRepository(db), validate, testLogger())
	f.events = NewEventService(f.eventRepo, f.schedule, f.audit, validate, 0, testLogger())
	f.notifier = &recordingNotifier{repo: f.notifications}
	f.publisher = &recordingPublisher{}
	f.workflow = NewChangeRequestService(f.notifications, f.assignments, f.eventRepo, f.schedule, f.notifier, f.publisher, f.audit, validate, 0, testLogger())

	created, err := f.events.CreateEvent(context.Background(), organizer, dto.EventCreateRequest{
		CompanyID:   f.company.ID,
		Title:       "Congreso",
		Description: "Anual",
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-02",
		Modality:    "Presencial",
		PlaceID:     &f.roomB.ID,
	})
	require.NoError(t, err)
	f.event, err = f.eventRepo.GetEvent(context.Background(), created.ID)
	require.NoError(t, err)

	return f
}

func (f *scheduleFixture) activityRequest(placeIDs ...uint) dto.ActivityRequest {
	return dto.ActivityRequest{
		Title:       "Taller",
		Description: "Práctico",
		Date:        "2025-06-01",
		StartTime:   "09:00",
		EndTime:     "10:00",
		Modality:    "presencial",
		PlaceIDs:    placeIDs,
		Headcount:   intPtr(40),
	}
}

func (f *scheduleFixture) createActivity(t *testing.T) dto.ActivityResponse {
	t.Helper()
	activity, err := f.events.CreateActivity(context.Background(), organizer, f.event.ID, f.activityRequest(f.roomB.ID))
	require.NoError(t, err)
	return activity
}
