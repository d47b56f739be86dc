package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/agenda-api/internal/models"
)

// EventRepository persists events and the activities scheduled inside them.
type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id uint) (models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event, guard EventGuard) error

	ListActivities(ctx context.Context, eventID uint) ([]models.Activity, error)
	GetActivity(ctx context.Context, id uint) (models.Activity, error)
	CreateActivity(ctx context.Context, activity *models.Activity) error
	UpdateActivity(ctx context.Context, activity *models.Activity) error
	DeleteActivity(ctx context.Context, id uint) error
}

// EventGuard inspects the activities stored under an event from inside the
// transaction that rewrites it. A non-nil error aborts the write.
type EventGuard func(activities []models.Activity) error

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository instantiates a GORM-backed event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) GetEvent(ctx context.Context, id uint) (models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return models.Event{}, err
	}
	return event, nil
}

// UpdateEvent rewrites the event while holding its row lock. Activity writes
// take the same lock in share mode, so the set guard sees cannot change before
// the event is written.
func (r *eventRepository) UpdateEvent(ctx context.Context, event *models.Event, guard EventGuard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockEvent(tx, event.ID, clause.LockingStrengthUpdate); err != nil {
			return err
		}
		if guard != nil {
			activities, err := r.listActivities(ctx, tx, event.ID)
			if err != nil {
				return err
			}
			if err := guard(activities); err != nil {
				return err
			}
		}

		result := tx.Model(&models.Event{}).
			Where("id = ?", event.ID).
			Updates(map[string]interface{}{
				"title":           event.Title,
				"description":     event.Description,
				"start_date":      event.StartDate,
				"end_date":        event.EndDate,
				"modality":        event.Modality,
				"headcount_limit": event.HeadcountLimit,
				"place_id":        event.PlaceID,
				"status":          event.Status,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *eventRepository) ListActivities(ctx context.Context, eventID uint) ([]models.Activity, error) {
	return r.listActivities(ctx, r.db, eventID)
}

func (r *eventRepository) listActivities(ctx context.Context, db *gorm.DB, eventID uint) ([]models.Activity, error) {
	activities := make([]models.Activity, 0)
	if err := db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("date ASC").
		Order("start_time ASC").
		Order("id ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}

	if len(activities) == 0 {
		return activities, nil
	}

	ids := make([]uint, 0, len(activities))
	for _, activity := range activities {
		ids = append(ids, activity.ID)
	}

	placesByActivity, err := r.placeIDs(ctx, db, ids...)
	if err != nil {
		return nil, err
	}
	for i := range activities {
		activities[i].PlaceIDs = placesByActivity[activities[i].ID]
	}
	return activities, nil
}
func (r *eventRepository) GetActivity(ctx context.Context, id uint) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return models.Activity{}, err
	}

	placesByActivity, err := r.placeIDs(ctx, r.db, id)
	if err != nil {
		return models.Activity{}, err
	}
	activity.PlaceIDs = placesByActivity[id]
	return activity, nil
}

func (r *eventRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockEvent(tx, activity.EventID, clause.LockingStrengthShare); err != nil {
			return err
		}
		if activity.Version == 0 {
			activity.Version = 1
		}
		if err := tx.Omit("Event").Create(activity).Error; err != nil {
			return err
		}
		return replacePlaces(tx, activity.ID, activity.PlaceIDs)
	})
}

// UpdateActivity writes the activity only if its version still matches the one
// that was read, then bumps the version. A mismatch returns ErrStaleRecord.
func (r *eventRepository) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockEvent(tx, activity.EventID, clause.LockingStrengthShare); err != nil {
			return err
		}
		oldVersion := activity.Version
		result := tx.Model(&models.Activity{}).
			Where("id = ? AND version = ?", activity.ID, oldVersion).
			Updates(map[string]interface{}{
				"title":       activity.Title,
				"description": activity.Description,
				"date":        activity.Date,
				"start_time":  activity.StartTime,
				"end_time":    activity.EndTime,
				"modality":    activity.Modality,
				"virtual_url": activity.VirtualURL,
				"speaker":     activity.Speaker,
				"headcount":   activity.Headcount,
				"version":     oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.Activity{}).Where("id = ?", activity.ID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrStaleRecord
		}

		if err := replacePlaces(tx, activity.ID, activity.PlaceIDs); err != nil {
			return err
		}
		activity.Version = oldVersion + 1
		return nil
	})
}

func (r *eventRepository) DeleteActivity(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id = ?", id).Delete(&models.ActivityPlace{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Activity{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *eventRepository) placeIDs(ctx context.Context, db *gorm.DB, activityIDs ...uint) (map[uint][]uint, error) {
	var rows []models.ActivityPlace
	if err := db.WithContext(ctx).
		Where("activity_id IN ?", activityIDs).
		Order("activity_id ASC").
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uint][]uint, len(activityIDs))
	for _, id := range activityIDs {
		out[id] = []uint{}
	}
	for _, row := range rows {
		out[row.ActivityID] = append(out[row.ActivityID], row.PlaceID)
	}
	return out, nil
}

// lockEvent takes a row lock on the event for the rest of the transaction.
// SQLite has no row locks and serializes writers instead.
func lockEvent(tx *gorm.DB, eventID uint, strength string) error {
	var event models.Event
	return tx.Clauses(clause.Locking{Strength: strength}).Select("id").First(&event, eventID).Error
}

func replacePlaces(tx *gorm.DB, activityID uint, placeIDs []uint) error {
	if err := tx.Where("activity_id = ?", activityID).Delete(&models.ActivityPlace{}).Error; err != nil {
		return err
	}
	if len(placeIDs) == 0 {
		return nil
	}
	rows := make([]models.ActivityPlace, 0, len(placeIDs))
	for position, placeID := range placeIDs {
		rows = append(rows, models.ActivityPlace{ActivityID: activityID, PlaceID: placeID, Position: position})
	}
	return tx.Create(&rows).Error
}
