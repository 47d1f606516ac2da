package repository

import (
	"context"
	"time"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tripSortColumns = map[string]string{
	"fly_time":    "fly_time",
	"arrive_time": "arrive_time",
	"created_at":  "created_at",
	"id":          "id",
}

type TripRepository struct {
	*pg.DB
}

func NewTripRepository(db *pg.DB) *TripRepository {
	return &TripRepository{
		db,
	}
}

func preloadTrip(db *gorm.DB) *gorm.DB {
	return db.Preload("From").Preload("To")
}

func (r *TripRepository) Create(ctx context.Context, trip *model.Trip) (*model.Trip, error) {
	entity := toTripEntity(trip)
	if err := r.Write(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		return nil, translate(err, "trip", trip.TripIdentifier)
	}
	return r.Get(ctx, entity.ID)
}

func (r *TripRepository) Get(ctx context.Context, id int64) (*model.Trip, error) {
	var entity TripEntity
	if err := r.Read(ctx).Scopes(preloadTrip).First(&entity, id).Error; err != nil {
		return nil, translate(err, "trip", id)
	}
	return toTripModel(&entity), nil
}

// FindSame returns the trip registered with the same identifier, schedule and route.
func (r *TripRepository) FindSame(ctx context.Context, t *model.Trip) (*model.Trip, error) {
	var entity TripEntity
	err := r.Read(ctx).Scopes(preloadTrip).
		Where("trip_identifier = ? AND from_id = ? AND to_id = ?", t.TripIdentifier, t.FromID, t.ToID).
		Where("fly_time = ? AND arrive_time = ?", t.FlyTime.UTC(), t.ArriveTime.UTC()).
		First(&entity).Error
	if err != nil {
		return nil, translate(err, "trip", t.TripIdentifier)
	}
	return toTripModel(&entity), nil
}

func (r *TripRepository) ByIdentifier(ctx context.Context, identifier string) ([]*model.Trip, error) {
	var entities []*TripEntity
	err := r.Read(ctx).Scopes(preloadTrip).
		Where("trip_identifier = ?", identifier).
		Order("fly_time ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toTripModels(entities), nil
}

// List returns trips whose departure and arrival locations match the query,
// departing after since.
func (r *TripRepository) List(ctx context.Context, q model.TripQuery, since time.Time) ([]*model.Trip, int64, error) {
	page := q.Page.Normalize()
	base := r.Read(ctx).Model(&TripEntity{}).Where("fly_time >= ?", since.UTC())
	if q.From != "" {
		base = base.Where("from_id IN (?)", locationIDs(r.Read(ctx), q.From))
	}
	if q.To != "" {
		base = base.Where("to_id IN (?)", locationIDs(r.Read(ctx), q.To))
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entities []*TripEntity
	err := base.Scopes(preloadTrip).
		Order(page.SortClause(tripSortColumns, "fly_time ASC")).
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	return toTripModels(entities), total, nil
}
