package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/models"
)

// AssignmentFilter describes pagination & filter options for assignment requests.
type AssignmentFilter struct {
	SpeakerID  string
	ActivityID *uint
	Status     models.AssignmentStatus
	Sort       string
	Page       int
	PageSize   int
}

// AssignmentRepository defines persistence operations for speaker assignment requests.
type AssignmentRepository interface {
	Create(ctx context.Context, request *models.AssignmentRequest, notification *models.Notification) error
	GetByID(ctx context.Context, id uint) (models.AssignmentRequest, error)
	FindByPair(ctx context.Context, speakerID string, activityID uint) (models.AssignmentRequest, error)
	ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.AssignmentRequest, int64, error)
	TransitionStatus(ctx context.Context, id uint, to models.AssignmentStatus, comment, resolvedBy string, at time.Time) (bool, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// Create stores a pending request together with the organizer notification
// announcing it. The notification payload is stamped with the new request id.
func (r *assignmentRepository) Create(ctx context.Context, request *models.AssignmentRequest, notification *models.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.AssignmentRequest{}).
			Where("speaker_id = ? AND activity_id = ? AND status = ?", request.SpeakerID, request.ActivityID, models.AssignmentStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrPendingRequestExists
		}

		request.Status = models.AssignmentStatusPending
		if err := tx.Create(request).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrPendingRequestExists
			}
			return err
		}

		if notification == nil {
			return nil
		}
		payload := notification.Payload.Data()
		payload.AssignmentRequestID = &request.ID
		notification.Payload = datatypes.NewJSONType(payload)
		if notification.State == "" {
			notification.State = models.NotificationStatePending
		}
		return tx.Create(notification).Error
	})
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.AssignmentRequest, error) {
	var request models.AssignmentRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return models.AssignmentRequest{}, err
	}
	return request, nil
}

// FindByPair returns the most recent request for the speaker and activity.
func (r *assignmentRepository) FindByPair(ctx context.Context, speakerID string, activityID uint) (models.AssignmentRequest, error) {
	var request models.AssignmentRequest
	if err := r.db.WithContext(ctx).
		Where("speaker_id = ? AND activity_id = ?", speakerID, activityID).
		Order("id DESC").
		First(&request).Error; err != nil {
		return models.AssignmentRequest{}, err
	}
	return request, nil
}

func (r *assignmentRepository) ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.AssignmentRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AssignmentRequest{})

	if speaker := strings.TrimSpace(filter.SpeakerID); speaker != "" {
		query = query.Where("speaker_id = ?", speaker)
	}
	if filter.ActivityID != nil {
		query = query.Where("activity_id = ?", *filter.ActivityID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeAssignmentSort(filter.Sort))

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	requests := make([]models.AssignmentRequest, 0)
	if err := query.Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// TransitionStatus resolves a request only while it is still pending in the
// store. It reports false when another caller resolved it first.
func (r *assignmentRepository) TransitionStatus(ctx context.Context, id uint, to models.AssignmentStatus, comment, resolvedBy string, at time.Time) (bool, error) {
	if to != models.AssignmentStatusApproved && to != models.AssignmentStatusRejected {
		return false, errors.New("assignment requests can only be approved or rejected")
	}

	result := r.db.WithContext(ctx).
		Model(&models.AssignmentRequest{}).
		Where("id = ? AND status = ?", id, models.AssignmentStatusPending).
		Updates(map[string]interface{}{
			"status":            to,
			"organizer_comment": comment,
			"resolved_by":       resolvedBy,
			"resolved_at":       at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func normalizeAssignmentSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "created_at", "created_at:asc", "created_at.asc":
		return "created_at ASC"
	case "-created_at", "created_at:desc", "created_at.desc":
		return "created_at DESC"
	case "status", "status:asc", "status.asc":
		return "status ASC"
	case "-status", "status:desc", "status.desc":
		return "status DESC"
	default:
		return "created_at DESC"
	}
}
