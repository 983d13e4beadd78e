package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bus_portal/internal/models"
)

type settingRepo struct{ db *gorm.DB }

func (r *settingRepo) Get(ctx context.Context, key string) (*models.AdminSetting, error) {
	var s models.AdminSetting
	if err := r.db.WithContext(ctx).First(&s, "key = ?", key).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *settingRepo) List(ctx context.Context) ([]models.AdminSetting, error) {
	var out []models.AdminSetting
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *settingRepo) Put(ctx context.Context, key, value string) (*models.AdminSetting, error) {
	s := &models.AdminSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}
