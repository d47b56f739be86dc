package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/models"
)

// NotificationFilter narrows an inbox listing. A non-zero AfterID switches
// the listing to ascending id order starting after that id.
type NotificationFilter struct {
	State   models.NotificationState
	Type    models.NotificationType
	AfterID uint
	Limit   int
	Offset  int
}

// NotificationRepository handles persistence for notification entities.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, filter NotificationFilter) ([]models.Notification, error)
	FindByID(ctx context.Context, id uint) (models.Notification, error)
	MarkRead(ctx context.Context, id uint, at time.Time) (bool, error)
	Archive(ctx context.Context, id uint) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.State == "" {
		notification.State = models.NotificationStatePending
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, filter NotificationFilter) ([]models.Notification, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	if filter.AfterID > 0 {
		query = query.Where("id > ?", filter.AfterID).Order("id ASC")
	} else {
		query = query.Order("created_at DESC").Order("id DESC")
	}

	notifications := make([]models.Notification, 0)
	if err := query.
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}

// MarkRead moves a pending notification to read. It reports false without
// error when the notification was no longer pending.
func (r *notificationRepository) MarkRead(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND state = ?", id, models.NotificationStatePending).
		Updates(map[string]interface{}{
			"state":   models.NotificationStateRead,
			"read_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Archive moves a pending or read notification to archived.
func (r *notificationRepository) Archive(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND state IN ?", id, []models.NotificationState{models.NotificationStatePending, models.NotificationStateRead}).
		Update("state", models.NotificationStateArchived)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Notification{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
