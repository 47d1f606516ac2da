package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
	"gorm.io/gorm"
)

type OfferRepository struct {
	*pg.DB
}

func NewOfferRepository(db *pg.DB) *OfferRepository {
	return &OfferRepository{
		db,
	}
}

func (r *OfferRepository) Create(ctx context.Context, o *model.Offer) (*model.Offer, error) {
	entity := toOfferEntity(o)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, model.ErrDuplicateOffer
		}
		return nil, fmt.Errorf("create offer: %w", err)
	}
	return toOfferModel(entity), nil
}

func (r *OfferRepository) Get(ctx context.Context, id int64) (*model.Offer, error) {
	var entity OfferEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, translate(err, "offer", id)
	}
	return toOfferModel(&entity), nil
}

// FindPair looks the pair up in both orderings.
func (r *OfferRepository) FindPair(ctx context.Context, a, b int64) (*model.Offer, error) {
	var entity OfferEntity
	err := r.Read(ctx).
		Where("(shipment_deal_id = ? AND trip_deal_id = ?) OR (shipment_deal_id = ? AND trip_deal_id = ?)", a, b, b, a).
		First(&entity).Error
	if err != nil {
		return nil, translate(err, "offer", fmt.Sprintf("%d/%d", a, b))
	}
	return toOfferModel(&entity), nil
}

// ListByDeal returns up to limit offers of a deal on the given side with an id
// greater than afterID, in id order.
func (r *OfferRepository) ListByDeal(ctx context.Context, side model.Side, dealID, afterID int64, limit int) ([]*model.Offer, error) {
	col := "shipment_deal_id"
	if side == model.SideTrip {
		col = "trip_deal_id"
	}
	var entities []*OfferEntity
	err := r.Read(ctx).
		Where(col+" = ? AND id > ?", dealID, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toOfferModels(entities), nil
}

// CountByDeal counts the offers referencing a deal on either side.
func (r *OfferRepository) CountByDeal(ctx context.Context, dealID int64) (int64, error) {
	var n int64
	err := r.Read(ctx).Model(&OfferEntity{}).
		Where("shipment_deal_id = ? OR trip_deal_id = ?", dealID, dealID).
		Count(&n).Error
	return n, err
}

// Transition moves an offer from one status to another, failing with
// ErrConcurrentUpdate if it is no longer in from.
func (r *OfferRepository) Transition(ctx context.Context, id int64, from, to model.OfferStatus) error {
	res := r.Write(ctx).Model(&OfferEntity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	return expectOneRow(res)
}

// CloseOthers closes every pending offer touching one of dealIDs except keepID.
func (r *OfferRepository) CloseOthers(ctx context.Context, dealIDs []int64, keepID int64) (int64, error) {
	res := r.Write(ctx).Model(&OfferEntity{}).
		Where("status = ? AND id <> ?", string(model.OfferPending), keepID).
		Where("(shipment_deal_id IN ? OR trip_deal_id IN ?)", dealIDs, dealIDs).
		Update("status", string(model.OfferClosed))
	return res.RowsAffected, res.Error
}

// DeletePending removes an offer only while it is still pending.
func (r *OfferRepository) DeletePending(ctx context.Context, id int64) error {
	res := r.Write(ctx).
		Where("id = ? AND status = ?", id, string(model.OfferPending)).
		Delete(&OfferEntity{})
	return expectOneRow(res)
}
