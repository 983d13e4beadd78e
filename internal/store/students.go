package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"bus_portal/internal/models"
)

type studentRepo struct{ db *gorm.DB }

func (r *studentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var s models.Student
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *studentRepo) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	var s models.Student
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *studentRepo) List(ctx context.Context, search string) ([]models.Student, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(student_id) LIKE ?", like, like, like)
	}
	var students []models.Student
	if err := q.Find(&students).Error; err != nil {
		return nil, translate(err)
	}
	return students, nil
}

func (r *studentRepo) Create(ctx context.Context, s *models.Student) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *studentRepo) CreateBatch(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).CreateInBatches(students, 100).Error)
}

func (r *studentRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Student, error) {
	res := r.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *studentRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Student{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *studentRepo) CompleteFirstLogin(ctx context.Context, id, passwordHash string) (*models.Student, error) {
	res := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("id = ? AND first_login_completed = ?", id, false).
		Updates(map[string]interface{}{
			"password_hash":         passwordHash,
			"first_login_completed": true,
			"failed_login_attempts": 0,
		})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *studentRepo) RecordLoginFailure(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).
		UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + 1")).Error)
}

func (r *studentRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return translate(r.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).
		Updates(map[string]interface{}{"failed_login_attempts": 0, "last_login_at": at}).Error)
}
