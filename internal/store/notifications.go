package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bus_portal/internal/models"
)

type notificationRepo struct{ db *gorm.DB }

func (r *notificationRepo) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (r *notificationRepo) Visible(ctx context.Context, userID, userType string, now time.Time) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Where("target_audience = ? OR target_audience = ? OR (target_audience = ? AND ? = ANY(specific_users))",
			models.AudienceAll, models.AudienceFor(userType), models.AudienceSpecific, userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(n).Error)
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND NOT (? = ANY(read_by))", id, userID).
		Update("read_by", gorm.Expr("array_append(read_by, ?)", userID))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}
