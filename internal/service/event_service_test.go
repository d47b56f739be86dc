package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

func TestEventServiceCapacityScenario(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	_, err := f.events.CreateActivity(ctx, organizer, f.event.ID, f.activityRequest(f.roomA.ID))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	require.Equal(t, scheduling.FieldHeadcount, verr.Fields[0].Field)
	require.Equal(t, 40, *verr.Fields[0].Requested)
	require.Equal(t, 30, *verr.Fields[0].Capacity)
	require.False(t, errors.Is(err, ErrConflict), "a bad draft is not a conflict")

	activity, err := f.events.CreateActivity(ctx, organizer, f.event.ID, f.activityRequest(f.roomB.ID))
	require.NoError(t, err)
	require.Equal(t, []uint{f.roomB.ID}, activity.PlaceIDs)
	require.Equal(t, "09:00", activity.StartTime)
	require.Equal(t, uint(1), activity.Version)

	listed, err := f.events.ListActivities(ctx, f.event.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestEventServiceRejectsForeignPlaces(t *testing.T) {
	f := newScheduleFixture(t)

	_, err := f.events.CreateActivity(context.Background(), organizer, f.event.ID, f.activityRequest(f.external.ID))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, scheduling.FieldPlaces, verr.Fields[0].Field)
}

func TestEventServiceValidateActivityDryRun(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	request := f.activityRequest(f.roomA.ID, f.roomB.ID)
	request.Modality = "virtual"
	request.VirtualURL = "https://meet.example.com/taller"

	result, err := f.events.ValidateActivity(ctx, f.event.ID, request)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Empty(t, result.Errors)
	require.NotNil(t, result.Activity)
	require.Empty(t, result.Activity.PlaceIDs)

	request.Date = "2025-06-05"
	request.EndTime = "08:00"
	result, err = f.events.ValidateActivity(ctx, f.event.ID, request)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 2)

	listed, err := f.events.ListActivities(ctx, f.event.ID)
	require.NoError(t, err)
	require.Empty(t, listed, "dry runs never persist")

	_, err = f.events.ValidateActivity(ctx, f.event.ID+99, request)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEventServiceUpdateActivityChecksVersion(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)

	updated, err := f.events.UpdateActivity(ctx, organizer, activity.ID, dto.ActivityUpdateRequest{
		StartTime: strPtr("09:15"),
		Version:   &activity.Version,
	})
	require.NoError(t, err)
	require.Equal(t, "09:15", updated.StartTime)
	require.Equal(t, uint(2), updated.Version)

	_, err = f.events.UpdateActivity(ctx, organizer, activity.ID, dto.ActivityUpdateRequest{
		Title:   strPtr("Otro"),
		Version: &activity.Version,
	})
	require.ErrorIs(t, err, ErrActivityStale)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.events.UpdateActivity(ctx, organizer, activity.ID, dto.ActivityUpdateRequest{Headcount: intPtr(150)})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, scheduling.FieldHeadcount, verr.Fields[0].Field)
}

func TestEventServiceScopesWritesToOrganizer(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	stranger := Actor{ID: "99", Role: RoleOrganizer}

	_, err := f.events.CreateActivity(ctx, stranger, f.event.ID, f.activityRequest(f.roomB.ID))
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, f.events.DeleteActivity(ctx, stranger, activity.ID), ErrForbidden)

	require.NoError(t, f.events.DeleteActivity(ctx, admin, activity.ID))
	require.ErrorIs(t, f.events.DeleteActivity(ctx, organizer, activity.ID), ErrNotFound)
}

func TestEventServiceShrinkingRangeConflicts(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	request := f.activityRequest(f.roomB.ID)
	request.Date = "2025-06-02"
	_, err := f.events.CreateActivity(ctx, organizer, f.event.ID, request)
	require.NoError(t, err)

	_, err = f.events.UpdateEvent(ctx, organizer, f.event.ID, dto.EventUpdateRequest{EndDate: strPtr("2025-06-01")})
	require.ErrorIs(t, err, ErrEventRangeConflict)
	require.ErrorIs(t, err, ErrConflict)

	updated, err := f.events.UpdateEvent(ctx, organizer, f.event.ID, dto.EventUpdateRequest{
		EndDate: strPtr("2025-06-03"),
		Status:  strPtr(string(models.EventStatusPublished)),
	})
	require.NoError(t, err)
	require.Equal(t, "2025-06-03", updated.EndDate)
	require.Equal(t, "published", updated.Status)

	_, err = f.events.UpdateEvent(ctx, organizer, f.event.ID, dto.EventUpdateRequest{StartDate: strPtr("2025-06-04")})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, scheduling.FieldEndDate, verr.Fields[0].Field)
}

func TestEventServiceRaisingHeadcountLimitRechecksInheritingActivities(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	request := f.activityRequest(f.roomA.ID)
	request.Headcount = nil
	inheriting, err := f.events.CreateActivity(ctx, organizer, f.event.ID, request)
	require.NoError(t, err)
	_, err = f.events.CreateActivity(ctx, organizer, f.event.ID, f.activityRequest(f.roomB.ID))
	require.NoError(t, err)

	_, err = f.events.UpdateEvent(ctx, organizer, f.event.ID, dto.EventUpdateRequest{HeadcountLimit: intPtr(80)})
	require.ErrorIs(t, err, ErrEventCapacityConflict)
	require.ErrorIs(t, err, ErrConflict)
	var blocked *ActivityConflictError
	require.True(t, errors.As(err, &blocked))
	require.Equal(t, []uint{inheriting.ID}, blocked.ActivityIDs)

	stored, err := f.eventRepo.GetEvent(ctx, f.event.ID)
	require.NoError(t, err)
	require.Nil(t, stored.HeadcountLimit)

	updated, err := f.events.UpdateEvent(ctx, organizer, f.event.ID, dto.EventUpdateRequest{HeadcountLimit: intPtr(25)})
	require.NoError(t, err)
	require.Equal(t, 25, *updated.HeadcountLimit)

	stored, err = f.eventRepo.GetEvent(ctx, f.event.ID)
	require.NoError(t, err)
	activity, err := f.eventRepo.GetActivity(ctx, inheriting.ID)
	require.NoError(t, err)
	result, err := f.schedule.ValidateActivity(ctx, stored, scheduling.DraftFromActivity(activity))
	require.NoError(t, err)
	require.True(t, result.Valid(), "stored activities stay within capacity")
}

type interleavingEventRepo struct {
	repository.EventRepository
	before func()
}

func (r *interleavingEventRepo) UpdateEvent(ctx context.Context, event *models.Event, guard repository.EventGuard) error {
	r.before()
	return r.EventRepository.UpdateEvent(ctx, event, guard)
}

func TestEventServiceHeadcountLimitRejectsActivitiesAddedMeanwhile(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	repo := &interleavingEventRepo{EventRepository: f.eventRepo}
	repo.before = func() {
		start, _ := models.ParseClock("11:00")
		end, _ := models.ParseClock("12:00")
		late := models.Activity{
			EventID:     f.event.ID,
			Title:       "Mesa",
			Description: "Redonda",
			Date:        f.event.StartDate,
			StartTime:   start,
			EndTime:     end,
			Modality:    models.ActivityModalityInPerson,
			PlaceIDs:    []uint{f.roomA.ID},
		}
		require.NoError(t, f.eventRepo.CreateActivity(ctx, &late))
	}
	events := NewEventService(repo, f.schedule, f.audit, validator.New(), 0, testLogger())

	_, err := events.UpdateEvent(ctx, organizer, f.event.ID, dto.EventUpdateRequest{HeadcountLimit: intPtr(80)})
	require.ErrorIs(t, err, ErrScheduleChanged)

	stored, err := f.eventRepo.GetEvent(ctx, f.event.ID)
	require.NoError(t, err)
	require.Nil(t, stored.HeadcountLimit)
}

func TestEventServiceCreateEventValidation(t *testing.T) {
	f := newScheduleFixture(t)

	_, err := f.events.CreateEvent(context.Background(), organizer, dto.EventCreateRequest{
		CompanyID: f.company.ID,
		Title:     "Foro",
		StartDate: "2025-07-02",
		EndDate:   "2025-07-01",
		Modality:  "Híbrido",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, 0, len(verr.Fields))
	for _, field := range verr.Fields {
		fields = append(fields, field.Field)
	}
	require.Contains(t, fields, scheduling.FieldEndDate)
	require.Contains(t, fields, scheduling.FieldPlace)
}
