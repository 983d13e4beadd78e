package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"bus_portal/internal/models"
)

type bookingRepo struct{ db *gorm.DB }

func (r *bookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *bookingRepo) ForRouteDate(ctx context.Context, routeID string, date time.Time, statuses []string) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Route").
		Preload("Schedule").
		Where("route_id = ? AND trip_date = ?", routeID, date)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("boarding_stop ASC").Find(&bookings).Error; err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (r *bookingRepo) ForDate(ctx context.Context, date time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Route").
		Where("trip_date = ?", date).
		Order("route_id ASC, boarding_stop ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (r *bookingRepo) ForStudent(ctx context.Context, studentID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Route").
		Preload("Schedule").
		Where("student_id = ?", studentID).
		Order("trip_date DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (r *bookingRepo) Create(ctx context.Context, b *models.Booking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Schedule{}).
			Where("id = ? AND status = ? AND booked_seats < total_seats", b.ScheduleID, models.ScheduleScheduled).
			UpdateColumn("booked_seats", gorm.Expr("booked_seats + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoSeats
		}
		return tx.Create(b).Error
	})
	return translate(err)
}

func (r *bookingRepo) Cancel(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Select("id", "schedule_id", "status").First(&b, "id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", id, models.BookingConfirmed).
			Update("status", models.BookingCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotCancellable
		}
		return tx.Model(&models.Schedule{}).
			Where("id = ?", b.ScheduleID).
			UpdateColumn("booked_seats", gorm.Expr("GREATEST(booked_seats - 1, 0)")).Error
	})
	if errors.Is(err, ErrNotCancellable) {
		return err
	}
	return translate(err)
}

func (r *bookingRepo) UpdatePayment(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
