package repository

import (
	"context"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
)

// DealStatusRepository reads the seeded lifecycle stages. Rows are written by
// migrations only.
type DealStatusRepository struct {
	*pg.DB
}

func NewDealStatusRepository(db *pg.DB) *DealStatusRepository {
	return &DealStatusRepository{
		db,
	}
}

func (r *DealStatusRepository) Sorted(ctx context.Context) ([]*model.DealStatus, error) {
	var entities []*DealStatusEntity
	if err := r.Read(ctx).Order("sequence ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	statuses := make([]*model.DealStatus, len(entities))
	for i, e := range entities {
		statuses[i] = toDealStatusModel(e)
	}
	return statuses, nil
}

func (r *DealStatusRepository) Get(ctx context.Context, id int64) (*model.DealStatus, error) {
	var entity DealStatusEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, translate(err, "deal status", id)
	}
	return toDealStatusModel(&entity), nil
}
