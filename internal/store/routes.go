package store

import (
	"context"

	"gorm.io/gorm"

	"bus_portal/internal/models"
)

type routeRepo struct{ db *gorm.DB }

func (r *routeRepo) List(ctx context.Context, activeOnly bool) ([]models.Route, error) {
	q := r.db.WithContext(ctx).Order("route_number ASC")
	if activeOnly {
		q = q.Where("status = ?", models.RouteActive)
	}
	var routes []models.Route
	if err := q.Find(&routes).Error; err != nil {
		return nil, translate(err)
	}
	return routes, nil
}

func (r *routeRepo) FindByID(ctx context.Context, id string) (*models.Route, error) {
	var route models.Route
	if err := r.db.WithContext(ctx).First(&route, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &route, nil
}

func (r *routeRepo) FindByNumber(ctx context.Context, number string) (*models.Route, error) {
	var route models.Route
	if err := r.db.WithContext(ctx).First(&route, "route_number = ?", number).Error; err != nil {
		return nil, translate(err)
	}
	return &route, nil
}

func (r *routeRepo) Stops(ctx context.Context, routeID string) ([]models.RouteStop, error) {
	var stops []models.RouteStop
	err := r.db.WithContext(ctx).
		Where("route_id = ?", routeID).
		Order("sequence_order ASC").
		Find(&stops).Error
	if err != nil {
		return nil, translate(err)
	}
	return stops, nil
}

// Create inserts the route and any stops attached to it.
func (r *routeRepo) Create(ctx context.Context, route *models.Route) error {
	return translate(r.db.WithContext(ctx).Create(route).Error)
}

func (r *routeRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Route, error) {
	res := r.db.WithContext(ctx).Model(&models.Route{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *routeRepo) ReplaceStops(ctx context.Context, routeID string, stops []models.RouteStop) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", routeID).Delete(&models.RouteStop{}).Error; err != nil {
			return err
		}
		if len(stops) == 0 {
			return nil
		}
		for i := range stops {
			stops[i].RouteID = routeID
		}
		return tx.Create(&stops).Error
	}))
}

func (r *routeRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Route{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *routeRepo) AssignDriver(ctx context.Context, routeID string, driverID *string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var route models.Route
		if err := tx.First(&route, "id = ?", routeID).Error; err != nil {
			return err
		}
		// release the previous driver
		if err := tx.Model(&models.Driver{}).
			Where("assigned_route_id = ?", routeID).
			Update("assigned_route_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Route{}).Where("id = ?", routeID).
			Update("driver_id", driverID).Error; err != nil {
			return err
		}
		if driverID == nil {
			return nil
		}
		res := tx.Model(&models.Driver{}).Where("id = ?", *driverID).Update("assigned_route_id", routeID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}))
}
