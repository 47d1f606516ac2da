package repository

import (
	"context"

	"github.com/nimasrn/laser/internal/matching"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var dealSortColumns = map[string]string{
	"id":               "deal.id",
	"created_at":       "deal.created_at",
	"arrival_date":     "deal.arrival_date",
	"expected_date":    "deal.expected_date",
	"available_weight": "deal.available_weight",
	"total_price":      "deal.total_price",
}

type DealRepository struct {
	*pg.DB
}

func NewDealRepository(db *pg.DB) *DealRepository {
	return &DealRepository{
		db,
	}
}

func preloadDeal(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Status").
		Preload("Trip.From").
		Preload("Trip.To").
		Preload("Shipments", func(db *gorm.DB) *gorm.DB { return db.Order("shipment.id ASC") }).
		Preload("Shipments.From").
		Preload("Shipments.To")
}

func (r *DealRepository) Create(ctx context.Context, d *model.Deal) (*model.Deal, error) {
	entity := toDealEntity(d)
	if entity.Version == 0 {
		entity.Version = 1
	}
	if err := r.Write(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		return nil, translate(err, "deal", d.ID)
	}
	return r.Get(ctx, entity.ID)
}

func (r *DealRepository) Get(ctx context.Context, id int64) (*model.Deal, error) {
	var entity DealEntity
	if err := r.Read(ctx).Scopes(preloadDeal).First(&entity, id).Error; err != nil {
		return nil, translate(err, "deal", id)
	}
	return toDealModel(&entity), nil
}

// Search returns the deals of one side satisfying f, with the page's total.
func (r *DealRepository) Search(ctx context.Context, side model.Side, f matching.Filter, page model.PageRequest) ([]*model.Deal, int64, error) {
	base, err := applyFilter(r.Read(ctx).Model(&DealEntity{}), r.Read(ctx), side, f)
	if err != nil {
		return nil, 0, err
	}
	return r.page(base, page, "deal.id ASC")
}

func (r *DealRepository) List(ctx context.Context, f model.DealFilter) ([]*model.Deal, int64, error) {
	base := r.Read(ctx).Model(&DealEntity{})
	if f.StatusID != nil {
		base = base.Where("deal.status_id = ?", *f.StatusID)
	}
	if f.MatchState != nil {
		base = base.Where("deal.match_state = ?", string(*f.MatchState))
	}
	if f.CreatedAfter != nil {
		base = base.Where("deal.created_at >= ?", f.CreatedAfter.UTC())
	}
	if f.Account != "" {
		base = base.Where(`LOWER(COALESCE(deal.from_account, '')) LIKE ? ESCAPE '\'`, containsPattern(f.Account))
	}
	return r.page(base, f.Page, "deal.created_at DESC")
}

func (r *DealRepository) page(base *gorm.DB, req model.PageRequest, defaultOrder string) ([]*model.Deal, int64, error) {
	req = req.Normalize()
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entities []*DealEntity
	err := base.Scopes(preloadDeal).
		Order(req.SortClause(dealSortColumns, defaultOrder)).
		Limit(req.Size).
		Offset(req.Offset()).
		Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	return toDealModels(entities), total, nil
}

// UpdateStatus moves a deal from one status to another if nobody changed it
// since it was read at version.
func (r *DealRepository) UpdateStatus(ctx context.Context, id, fromStatusID int64, version int64, toStatusID int64) error {
	res := r.Write(ctx).Model(&DealEntity{}).
		Where("id = ? AND status_id = ? AND version = ?", id, fromStatusID, version).
		Updates(map[string]any{
			"status_id": toStatusID,
			"version":   gorm.Expr("version + 1"),
		})
	return expectOneRow(res)
}

// BindTrip describes how a waiting trip-side deal is bound to a shipment-side deal.
type BindTrip struct {
	DealID        int64
	Version       int64
	FromStatusID  int64
	ToStatusID    int64
	Weight        float64
	OwnerID       *int64
	CounterpartID int64
}

// BindTrip reserves Weight on the trip deal and records its counterpart. It
// fails with ErrConcurrentUpdate if the deal moved on or no longer has room.
func (r *DealRepository) BindTrip(ctx context.Context, b BindTrip) error {
	res := r.Write(ctx).Model(&DealEntity{}).
		Where("id = ? AND status_id = ? AND version = ? AND match_state = ?",
			b.DealID, b.FromStatusID, b.Version, string(model.MatchTripMatched)).
		Where("available_weight >= ?", b.Weight).
		Updates(map[string]any{
			"status_id":        b.ToStatusID,
			"available_weight": gorm.Expr("available_weight - ?", b.Weight),
			"owner_id":         b.OwnerID,
			"counterpart_id":   b.CounterpartID,
			"match_state":      string(model.MatchFullyMatched),
			"version":          gorm.Expr("version + 1"),
		})
	return expectOneRow(res)
}

// BindShipment describes how a waiting shipment-side deal is bound to a trip-side deal.
type BindShipment struct {
	DealID        int64
	Version       int64
	FromStatusID  int64
	ToStatusID    int64
	TripID        *int64
	DeliverID     *int64
	CounterpartID int64
}

func (r *DealRepository) BindShipment(ctx context.Context, b BindShipment) error {
	res := r.Write(ctx).Model(&DealEntity{}).
		Where("id = ? AND status_id = ? AND version = ? AND match_state = ?",
			b.DealID, b.FromStatusID, b.Version, string(model.MatchShipmentMatched)).
		Updates(map[string]any{
			"status_id":      b.ToStatusID,
			"trip_id":        b.TripID,
			"deliver_id":     b.DeliverID,
			"counterpart_id": b.CounterpartID,
			"match_state":    string(model.MatchFullyMatched),
			"version":        gorm.Expr("version + 1"),
		})
	return expectOneRow(res)
}

// UpdateWeights resets the weights of a deal read at version.
func (r *DealRepository) UpdateWeights(ctx context.Context, id, version int64, full, available float64) error {
	res := r.Write(ctx).Model(&DealEntity{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"full_weight":      full,
			"available_weight": available,
			"version":          gorm.Expr("version + 1"),
		})
	return expectOneRow(res)
}

// Payment is the bookkeeping recorded on a deal once it is paid.
type Payment struct {
	DealID        int64
	Version       int64
	TransactionID int64
	TotalPrice    float64
	FromAccount   string
	ToAccount     string
}

func (r *DealRepository) MarkCashed(ctx context.Context, p Payment) error {
	res := r.Write(ctx).Model(&DealEntity{}).
		Where("id = ? AND version = ? AND is_cashed = ?", p.DealID, p.Version, false).
		Updates(map[string]any{
			"transaction_id": p.TransactionID,
			"total_price":    p.TotalPrice,
			"from_account":   p.FromAccount,
			"to_account":     p.ToAccount,
			"is_cashed":      true,
			"version":        gorm.Expr("version + 1"),
		})
	return expectOneRow(res)
}
