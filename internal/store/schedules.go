package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bus_portal/internal/models"
)

type scheduleRepo struct{ db *gorm.DB }

func (r *scheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	var s models.Schedule
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *scheduleRepo) ForRoute(ctx context.Context, routeID string, date time.Time) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.WithContext(ctx).
		Where("route_id = ? AND schedule_date = ?", routeID, date).
		Order("departure_time ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, translate(err)
	}
	return schedules, nil
}

func (r *scheduleRepo) Create(ctx context.Context, s *models.Schedule) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}
