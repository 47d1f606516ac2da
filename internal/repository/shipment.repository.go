package repository

import (
	"context"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShipmentRepository struct {
	*pg.DB
}

func NewShipmentRepository(db *pg.DB) *ShipmentRepository {
	return &ShipmentRepository{
		db,
	}
}

func (r *ShipmentRepository) CreateBatch(ctx context.Context, shipments []*model.Shipment) ([]*model.Shipment, error) {
	entities := make([]*ShipmentEntity, len(shipments))
	for i, s := range shipments {
		entities[i] = toShipmentEntity(s)
	}
	if err := r.Write(ctx).Omit(clause.Associations).Create(&entities).Error; err != nil {
		return nil, translate(err, "shipment", len(shipments))
	}
	return toShipmentModels(entities), nil
}

func (r *ShipmentRepository) Get(ctx context.Context, id int64) (*model.Shipment, error) {
	var entity ShipmentEntity
	err := r.Read(ctx).Preload("From").Preload("To").First(&entity, id).Error
	if err != nil {
		return nil, translate(err, "shipment", id)
	}
	return toShipmentModel(&entity), nil
}

// Update overwrites the editable fields of a shipment. The owning deal is left as is.
func (r *ShipmentRepository) Update(ctx context.Context, s *model.Shipment) error {
	res := r.Write(ctx).Model(&ShipmentEntity{}).
		Where("id = ?", s.ID).
		Updates(map[string]any{
			"type_id":     s.TypeID,
			"from_id":     s.FromID,
			"to_id":       s.ToID,
			"weight":      s.Weight,
			"description": s.Description,
			"url":         s.URL,
			"img_url":     s.ImgURL,
			"cost":        s.Cost,
			"price":       s.Price,
			"details":     s.Details,
		})
	if res.Error != nil {
		return translate(res.Error, "shipment", s.ID)
	}
	if res.RowsAffected == 0 {
		return model.NotFound("shipment", s.ID)
	}
	return nil
}

func (r *ShipmentRepository) ListByDeal(ctx context.Context, dealID int64) ([]*model.Shipment, error) {
	var entities []*ShipmentEntity
	err := r.Read(ctx).Preload("From").Preload("To").
		Where("deal_id = ?", dealID).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toShipmentModels(entities), nil
}

// PageByDeal returns one page of the shipments carried by a deal and their total.
func (r *ShipmentRepository) PageByDeal(ctx context.Context, dealID int64, page model.PageRequest) ([]*model.Shipment, int64, error) {
	page = page.Normalize()
	base := r.Read(ctx).Model(&ShipmentEntity{}).Where("deal_id = ?", dealID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entities []*ShipmentEntity
	err := base.Session(&gorm.Session{}).Preload("From").Preload("To").
		Order("id ASC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	return toShipmentModels(entities), total, nil
}

// Detach releases a shipment from the deal carrying it. It fails with
// ErrConcurrentUpdate when the shipment is no longer on that deal.
func (r *ShipmentRepository) Detach(ctx context.Context, id, dealID int64) error {
	res := r.Write(ctx).Model(&ShipmentEntity{}).
		Where("id = ? AND deal_id = ?", id, dealID).
		Update("deal_id", nil)
	return expectOneRow(res)
}

// Reassign moves every shipment of one deal to another and returns how many moved.
func (r *ShipmentRepository) Reassign(ctx context.Context, fromDealID, toDealID int64) (int64, error) {
	res := r.Write(ctx).Model(&ShipmentEntity{}).
		Where("deal_id = ?", fromDealID).
		Update("deal_id", toDealID)
	return res.RowsAffected, res.Error
}

type ShipmentTypeRepository struct {
	*pg.DB
}

func NewShipmentTypeRepository(db *pg.DB) *ShipmentTypeRepository {
	return &ShipmentTypeRepository{
		db,
	}
}

func (r *ShipmentTypeRepository) Create(ctx context.Context, t *model.ShipmentType) (*model.ShipmentType, error) {
	entity := &ShipmentTypeEntity{Name: t.Name, Factor: t.Factor}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "shipment type", t.Name)
	}
	return toShipmentTypeModel(entity), nil
}

func (r *ShipmentTypeRepository) Get(ctx context.Context, id int64) (*model.ShipmentType, error) {
	var entity ShipmentTypeEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, translate(err, "shipment type", id)
	}
	return toShipmentTypeModel(&entity), nil
}

func (r *ShipmentTypeRepository) List(ctx context.Context) ([]*model.ShipmentType, error) {
	var entities []*ShipmentTypeEntity
	if err := r.Read(ctx).Order("name ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	types := make([]*model.ShipmentType, len(entities))
	for i, e := range entities {
		types[i] = toShipmentTypeModel(e)
	}
	return types, nil
}
