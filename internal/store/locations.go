package store

import (
	"context"

	"gorm.io/gorm"

	"bus_portal/internal/models"
)

type locationRepo struct{ db *gorm.DB }

func (r *locationRepo) Append(ctx context.Context, point *models.LocationHistory) error {
	return translate(r.db.WithContext(ctx).Create(point).Error)
}

func (r *locationRepo) Last(ctx context.Context, driverID string) (*models.LocationHistory, error) {
	var l models.LocationHistory
	err := r.db.WithContext(ctx).Where("driver_id = ?", driverID).Order("recorded_at DESC").First(&l).Error
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (r *locationRepo) Recent(ctx context.Context, driverID, routeID string, limit int) ([]models.LocationHistory, error) {
	var points []models.LocationHistory
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND route_id = ?", driverID, routeID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&points).Error
	if err != nil {
		return nil, translate(err)
	}
	return points, nil
}
