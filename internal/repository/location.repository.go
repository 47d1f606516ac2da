package repository

import (
	"context"
	"strings"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
	"gorm.io/gorm"
)

// locationMatchSQL is the substring test used by searches: a location matches
// when the pattern is found in its country, city or airport.
const locationMatchSQL = `(LOWER(country) LIKE ? ESCAPE '\' OR LOWER(city) LIKE ? ESCAPE '\' OR LOWER(COALESCE(airport, '')) LIKE ? ESCAPE '\')`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

type LocationRepository struct {
	*pg.DB
}

func NewLocationRepository(db *pg.DB) *LocationRepository {
	return &LocationRepository{
		db,
	}
}

func (r *LocationRepository) Create(ctx context.Context, loc *model.Location) (*model.Location, error) {
	entity := toLocationEntity(loc)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "location", loc.City)
	}
	return toLocationModel(entity), nil
}

func (r *LocationRepository) Get(ctx context.Context, id int64) (*model.Location, error) {
	var entity LocationEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, translate(err, "location", id)
	}
	return toLocationModel(&entity), nil
}

func (r *LocationRepository) ByCity(ctx context.Context, city string) (*model.Location, error) {
	var entity LocationEntity
	err := r.Read(ctx).Where("LOWER(city) = ?", strings.ToLower(city)).First(&entity).Error
	if err != nil {
		return nil, translate(err, "location", city)
	}
	return toLocationModel(&entity), nil
}

func (r *LocationRepository) ByAirport(ctx context.Context, code string) (*model.Location, error) {
	var entity LocationEntity
	err := r.Read(ctx).Where("UPPER(airport) = ?", strings.ToUpper(code)).First(&entity).Error
	if err != nil {
		return nil, translate(err, "location", code)
	}
	return toLocationModel(&entity), nil
}

func (r *LocationRepository) Search(ctx context.Context, needle string, limit int) ([]*model.Location, error) {
	if limit <= 0 || limit > model.MaxPageSize {
		limit = model.DefaultPageSize
	}
	var entities []*LocationEntity
	err := r.Read(ctx).
		Where(locationMatchSQL, repeat3(containsPattern(needle))...).
		Order("city ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toLocationModels(entities), nil
}

// locationIDs is a subquery selecting the ids of the locations matching needle.
func locationIDs(db *gorm.DB, needle string) *gorm.DB {
	return db.Model(&LocationEntity{}).
		Select("id").
		Where(locationMatchSQL, repeat3(containsPattern(needle))...)
}

func repeat3(v any) []any {
	return []any{v, v, v}
}
