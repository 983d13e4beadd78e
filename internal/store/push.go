package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bus_portal/internal/models"
)

type pushRepo struct{ db *gorm.DB }

// Upsert stores one subscription per (user, endpoint), refreshing keys and
// reactivating it when it already exists.
func (r *pushRepo) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	sub.IsActive = true
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_type", "p256dh", "auth", "is_active", "updated_at"}),
	}).Create(sub).Error)
}

func (r *pushRepo) Deactivate(ctx context.Context, userID, endpoint string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.PushSubscription{}).Where("user_id = ?", userID)
	if endpoint != "" {
		q = q.Where("endpoint = ?", endpoint)
	}
	res := q.Update("is_active", false)
	return res.RowsAffected, translate(res.Error)
}

func (r *pushRepo) DeactivateEndpoint(ctx context.Context, endpoint string) error {
	return translate(r.db.WithContext(ctx).Model(&models.PushSubscription{}).
		Where("endpoint = ?", endpoint).
		Update("is_active", false).Error)
}

func (r *pushRepo) Active(ctx context.Context, filter PushFilter) ([]models.PushSubscription, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if filter.UserType != "" {
		q = q.Where("user_type = ?", filter.UserType)
	}
	if len(filter.UserIDs) > 0 {
		q = q.Where("user_id IN ?", filter.UserIDs)
	}
	var subs []models.PushSubscription
	if err := q.Find(&subs).Error; err != nil {
		return nil, translate(err)
	}
	return subs, nil
}
