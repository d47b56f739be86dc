package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

func submitProposal(t *testing.T, f *scheduleFixture, activityID uint, proposal string) dto.SpeakerRequestResponse {
	t.Helper()
	response, err := f.workflow.Submit(context.Background(), speaker, dto.SpeakerRequestCreate{
		ActivityID:    activityID,
		Justification: "<b>vuelo</b> retrasado",
		Proposal:      json.RawMessage(proposal),
	})
	require.NoError(t, err)
	return response
}

func TestChangeRequestScenario(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)

	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30"}`)
	require.Equal(t, "pending", submitted.Assignment.Status)
	require.Equal(t, "vuelo retrasado", submitted.Assignment.Justification)
	require.Len(t, f.notifier.delivered, 1)
	require.Equal(t, organizer.ID, f.notifier.delivered[0].RecipientID)

	detail, err := f.workflow.Open(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)
	require.Equal(t, "read", detail.Notification.State)
	require.NotNil(t, detail.Assignment)
	require.Equal(t, submitted.Assignment.ID, detail.Assignment.ID)
	require.NotNil(t, detail.Proposal)
	require.Equal(t, "09:30", *detail.Proposal.StartTime)

	applied, err := f.workflow.ApplyProposal(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)
	require.Equal(t, "09:30", applied.Activity.StartTime)
	require.Equal(t, "10:00", applied.Activity.EndTime)

	request, err := f.assignments.GetByID(ctx, submitted.Assignment.ID)
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusPending, request.Status, "applying never approves")

	approved, err := f.workflow.Approve(ctx, organizer, submitted.NotificationID, dto.ResolutionRequest{Comment: "ok"})
	require.NoError(t, err)
	require.Equal(t, "approved", approved.Status)
	require.Equal(t, "ok", approved.OrganizerComment)

	stored, err := f.eventRepo.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	require.Equal(t, "09:30", models.FormatClock(stored.StartTime))
	require.Equal(t, applied.Activity.Version, stored.Version, "approving leaves the activity alone")

	require.Len(t, f.publisher.events, 1)
	require.Equal(t, models.AssignmentStatusApproved, f.publisher.events[0].Status)
	require.Equal(t, speaker.ID, f.publisher.events[0].SpeakerID)
	require.Len(t, f.notifier.published, 1)
	require.Equal(t, speaker.ID, f.notifier.published[0].RecipientID)
	require.Equal(t, models.NotificationTypeAssignmentResolved, f.notifier.published[0].Type)

	require.Equal(t, models.AssignmentStatusApproved, f.notifier.published[0].Payload.Data().Status)

	notification, err := f.notifications.FindByID(ctx, submitted.NotificationID)
	require.NoError(t, err)
	require.Equal(t, models.NotificationStateRead, notification.State)
	require.Empty(t, notification.Payload.Data().Status, "the organizer's copy never carries a decision that can go stale")
}

func TestChangeRequestApproveDoesNotApply(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"titulo":"Nuevo título"}`)

	_, err := f.workflow.Approve(ctx, organizer, submitted.NotificationID, dto.ResolutionRequest{})
	require.NoError(t, err)

	stored, err := f.eventRepo.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	require.Equal(t, "Taller", stored.Title)
	require.Equal(t, uint(1), stored.Version)
}

func TestChangeRequestReapplyIsIdempotent(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30","titulo":"Taller práctico"}`)

	first, err := f.workflow.ApplyProposal(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)
	second, err := f.workflow.ApplyProposal(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)

	first.Activity.UpdatedAt = second.Activity.UpdatedAt
	first.Activity.CreatedAt = second.Activity.CreatedAt
	require.Equal(t, first.Activity, second.Activity)
}

func TestChangeRequestReapplyValidatesCurrentState(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30"}`)

	_, err := f.workflow.ApplyProposal(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)

	_, err = f.events.UpdateActivity(ctx, organizer, activity.ID, dto.ActivityUpdateRequest{
		StartTime: strPtr("09:00"),
		EndTime:   strPtr("09:20"),
	})
	require.NoError(t, err)

	_, err = f.workflow.ApplyProposal(ctx, organizer, submitted.NotificationID)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, scheduling.FieldEndTime, verr.Fields[0].Field)

	stored, err := f.eventRepo.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	require.Equal(t, "09:00", models.FormatClock(stored.StartTime))
	require.Equal(t, "09:20", models.FormatClock(stored.EndTime))
}

func TestChangeRequestSingleResolution(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30"}`)

	_, err := f.workflow.Approve(ctx, organizer, submitted.NotificationID, dto.ResolutionRequest{Comment: "sí"})
	require.NoError(t, err)

	_, err = f.workflow.Reject(ctx, organizer, submitted.NotificationID, dto.ResolutionRequest{Comment: "no"})
	require.ErrorIs(t, err, ErrAssignmentAlreadyResolved)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.workflow.Approve(ctx, organizer, submitted.NotificationID, dto.ResolutionRequest{})
	require.ErrorIs(t, err, ErrAssignmentAlreadyResolved)

	request, err := f.assignments.GetByID(ctx, submitted.Assignment.ID)
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusApproved, request.Status)
	require.Equal(t, "sí", request.OrganizerComment)
	require.Len(t, f.publisher.events, 1)
}

func TestChangeRequestConcurrentResolutionHasOneWinner(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30"}`)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.workflow.Approve(ctx, organizer, submitted.NotificationID, dto.ResolutionRequest{})
			} else {
				_, err = f.workflow.Reject(ctx, organizer, submitted.NotificationID, dto.ResolutionRequest{})
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAssignmentAlreadyResolved):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, conflicts)
}

func TestChangeRequestStaleCapacityIsConflict(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30"}`)

	_, err := f.workflow.Open(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Place{}).Where("id = ?", f.roomB.ID).Update("capacity", 20).Error)

	_, err = f.workflow.ApplyProposal(ctx, organizer, submitted.NotificationID)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.True(t, verr.IsConflict())
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, scheduling.FieldHeadcount, verr.Fields[0].Field)
	require.Equal(t, 20, *verr.Fields[0].Capacity)

	stored, err := f.eventRepo.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	require.Equal(t, "09:00", models.FormatClock(stored.StartTime))
}

func TestChangeRequestInvalidProposalIsValidationError(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"11:00"}`)

	_, err := f.workflow.ApplyProposal(ctx, organizer, submitted.NotificationID)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.False(t, verr.IsConflict())
	require.False(t, errors.Is(err, ErrConflict))
	require.Equal(t, scheduling.FieldEndTime, verr.Fields[0].Field)

	notification, err := f.notifications.FindByID(ctx, submitted.NotificationID)
	require.NoError(t, err)
	require.Equal(t, models.NotificationStatePending, notification.State)
}

func TestChangeRequestSubmitRules(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)

	_, err := f.workflow.Submit(ctx, speaker, dto.SpeakerRequestCreate{
		ActivityID: activity.ID,
		Proposal:   json.RawMessage(`{"lugares":[1]}`),
	})
	require.ErrorIs(t, err, ErrInvalidProposal)

	_, err = f.workflow.Submit(ctx, speaker, dto.SpeakerRequestCreate{
		ActivityID: activity.ID,
		Proposal:   json.RawMessage(`{"hora_inicio":"9.30"}`),
	})
	require.ErrorIs(t, err, ErrInvalidProposal)

	_, err = f.workflow.Submit(ctx, speaker, dto.SpeakerRequestCreate{ActivityID: activity.ID + 100})
	require.ErrorIs(t, err, ErrNotFound)

	plain, err := f.workflow.Submit(ctx, speaker, dto.SpeakerRequestCreate{ActivityID: activity.ID})
	require.NoError(t, err)

	_, err = f.workflow.Submit(ctx, speaker, dto.SpeakerRequestCreate{ActivityID: activity.ID})
	require.ErrorIs(t, err, ErrPendingRequestExists)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.workflow.ApplyProposal(ctx, organizer, plain.NotificationID)
	require.ErrorIs(t, err, ErrProposalMissing)

	mine, meta, err := f.workflow.ListSubmitted(ctx, speaker, dto.AssignmentListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, int64(1), meta.TotalItems)

	_, err = f.workflow.Submit(ctx, Actor{Role: RoleSpeaker}, dto.SpeakerRequestCreate{ActivityID: activity.ID})
	require.ErrorIs(t, err, ErrActorRequired)
}

func TestChangeRequestListSubmittedFilters(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	first := f.createActivity(t)
	second := f.createActivity(t)

	rejected := submitProposal(t, f, first.ID, `{"titulo":"Taller breve"}`)
	_, err := f.workflow.Reject(ctx, organizer, rejected.NotificationID, dto.ResolutionRequest{Comment: "no"})
	require.NoError(t, err)
	submitProposal(t, f, second.ID, `{"titulo":"Taller largo"}`)

	pending, meta, err := f.workflow.ListSubmitted(ctx, speaker, dto.AssignmentListQuery{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ActivityID)
	require.Equal(t, 20, meta.PageSize)

	byActivity, _, err := f.workflow.ListSubmitted(ctx, speaker, dto.AssignmentListQuery{ActivityID: &first.ID})
	require.NoError(t, err)
	require.Len(t, byActivity, 1)
	require.Equal(t, "rejected", byActivity[0].Status)

	sorted, _, err := f.workflow.ListSubmitted(ctx, speaker, dto.AssignmentListQuery{Sort: "status"})
	require.NoError(t, err)
	require.Len(t, sorted, 2)
	require.Equal(t, "pending", sorted[0].Status)

	_, _, err = f.workflow.ListSubmitted(ctx, speaker, dto.AssignmentListQuery{Status: "maybe"})
	require.Error(t, err)
	_, _, err = f.workflow.ListSubmitted(ctx, Actor{Role: RoleSpeaker}, dto.AssignmentListQuery{})
	require.ErrorIs(t, err, ErrActorRequired)
}

func TestChangeRequestSubmitNeedsAnOrganizer(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	require.NoError(t, f.db.Model(&models.Event{}).Where("id = ?", f.event.ID).Update("organizer_id", "").Error)

	_, err := f.workflow.Submit(ctx, speaker, dto.SpeakerRequestCreate{ActivityID: activity.ID})
	require.ErrorIs(t, err, ErrEventWithoutOrganizer)
	require.ErrorIs(t, err, ErrConflict)
	require.Empty(t, f.notifier.delivered)
}

func TestChangeRequestRecipientScoping(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30"}`)
	stranger := Actor{ID: "99", Role: RoleOrganizer}

	_, err := f.workflow.Open(ctx, stranger, submitted.NotificationID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.workflow.Approve(ctx, stranger, submitted.NotificationID, dto.ResolutionRequest{})
	require.ErrorIs(t, err, ErrForbidden)

	detail, err := f.workflow.Open(ctx, admin, submitted.NotificationID)
	require.NoError(t, err)
	require.Equal(t, "read", detail.Notification.State)
}

func TestChangeRequestArchiveAndDelete(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30"}`)

	archived, err := f.workflow.Archive(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)
	require.Equal(t, "archived", archived.State)

	again, err := f.workflow.Archive(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)
	require.Equal(t, "archived", again.State)

	detail, err := f.workflow.Open(ctx, organizer, submitted.NotificationID)
	require.NoError(t, err)
	require.Equal(t, "archived", detail.Notification.State, "opening never moves state backwards")

	require.NoError(t, f.workflow.Delete(ctx, organizer, submitted.NotificationID))
	require.ErrorIs(t, f.workflow.Delete(ctx, organizer, submitted.NotificationID), ErrNotFound)

	request, err := f.assignments.GetByID(ctx, submitted.Assignment.ID)
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusPending, request.Status)
}

func TestChangeRequestOutboundFailureKeepsDecision(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t)
	submitted := submitProposal(t, f, activity.ID, `{"hora_inicio":"09:30"}`)
	f.publisher.err = errors.New("broker down")

	rejected, err := f.workflow.Reject(ctx, organizer, submitted.NotificationID, dto.ResolutionRequest{Comment: "<script>x</script>sin espacio"})
	require.NoError(t, err)
	require.Equal(t, "rejected", rejected.Status)
	require.Equal(t, "sin espacio", rejected.OrganizerComment)
}
