package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"bus_portal/internal/models"
)

type driverRepo struct{ db *gorm.DB }

func (r *driverRepo) FindByID(ctx context.Context, id string) (*models.Driver, error) {
	var d models.Driver
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *driverRepo) FindByEmail(ctx context.Context, email string) (*models.Driver, error) {
	var d models.Driver
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *driverRepo) List(ctx context.Context) ([]models.Driver, error) {
	var drivers []models.Driver
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&drivers).Error; err != nil {
		return nil, translate(err)
	}
	return drivers, nil
}

func (r *driverRepo) Create(ctx context.Context, d *models.Driver) error {
	return translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r *driverRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Driver, error) {
	res := r.db.WithContext(ctx).Model(&models.Driver{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *driverRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Driver{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *driverRepo) UpdateLocation(ctx context.Context, id string, lat, lng, accuracy float64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Driver{}).Where("id = ?", id).Updates(map[string]interface{}{
		"current_latitude":     lat,
		"current_longitude":    lng,
		"location_accuracy":    accuracy,
		"last_location_update": at,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
