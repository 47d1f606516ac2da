package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/laser/internal/matching"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/internal/repository"
	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/prom"
)

type DealRepository interface {
	Create(ctx context.Context, d *model.Deal) (*model.Deal, error)
	Get(ctx context.Context, id int64) (*model.Deal, error)
	List(ctx context.Context, f model.DealFilter) ([]*model.Deal, int64, error)
	Search(ctx context.Context, side model.Side, f matching.Filter, page model.PageRequest) ([]*model.Deal, int64, error)
	UpdateStatus(ctx context.Context, id, fromStatusID, version, toStatusID int64) error
	BindTrip(ctx context.Context, b repository.BindTrip) error
	BindShipment(ctx context.Context, b repository.BindShipment) error
	UpdateWeights(ctx context.Context, id, version int64, full, available float64) error
	MarkCashed(ctx context.Context, p repository.Payment) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
}

type DealShipmentRepository interface {
	Get(ctx context.Context, id int64) (*model.Shipment, error)
	PageByDeal(ctx context.Context, dealID int64, page model.PageRequest) ([]*model.Shipment, int64, error)
	Detach(ctx context.Context, id, dealID int64) error
}

type AccountProviderRepository interface {
	Create(ctx context.Context, name string) (*model.AccountProvider, error)
	Get(ctx context.Context, id int64) (*model.AccountProvider, error)
	List(ctx context.Context) ([]*model.AccountProvider, error)
}

type DealOptions struct {
	// AllowSkip lets a deal jump forward over intermediate statuses.
	AllowSkip    bool
	RecentWindow time.Duration
}

type DealService struct {
	deals     DealRepository
	shipments DealShipmentRepository
	statuses  *StatusService
	txns      TransactionRepository
	providers AccountProviderRepository
	opts      DealOptions
	now       func() time.Time
}

func NewDealService(deals DealRepository, shipments DealShipmentRepository, statuses *StatusService, txns TransactionRepository, providers AccountProviderRepository, opts DealOptions) *DealService {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 240 * time.Hour
	}
	return &DealService{
		deals:     deals,
		shipments: shipments,
		statuses:  statuses,
		txns:      txns,
		providers: providers,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *DealService) Get(ctx context.Context, id int64) (*model.Deal, error) {
	return s.deals.Get(ctx, id)
}

// AdvanceStatus moves a bound deal forward in its lifecycle. A deal leaves
// Waiting only through OfferService.Accept, so deals still open for matching
// are rejected. The target must come strictly after the current status, and
// unless skipping is enabled it must be the very next one.
func (s *DealService) AdvanceStatus(ctx context.Context, dealID, statusID int64) (*model.Deal, error) {
	target, err := s.statuses.ByID(ctx, statusID)
	if err != nil {
		return nil, err
	}

	err = s.deals.WithinTransaction(ctx, func(ctx context.Context) error {
		deal, err := s.deals.Get(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.MatchState != model.MatchFullyMatched {
			return fmt.Errorf("%w: deal %d is %s and has no counterpart yet", model.ErrInvalidTransition, dealID, deal.MatchState)
		}
		current := deal.Status
		if current == nil {
			if current, err = s.statuses.ByID(ctx, deal.StatusID); err != nil {
				return err
			}
		}

		if target.Sequence <= current.Sequence {
			return fmt.Errorf("%w: deal %d cannot go from %q back to %q", model.ErrInvalidTransition, dealID, current.Name, target.Name)
		}
		if !s.opts.AllowSkip && target.Sequence != current.Sequence+1 {
			return fmt.Errorf("%w: deal %d cannot skip from %q to %q", model.ErrInvalidTransition, dealID, current.Name, target.Name)
		}

		err = s.deals.UpdateStatus(ctx, deal.ID, deal.StatusID, deal.Version, target.ID)
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			return fmt.Errorf("%w: deal %d changed concurrently", model.ErrConflict, dealID)
		}
		return err
	})
	if err != nil {
		prom.IncDealTransition(target.Name, "rejected")
		return nil, err
	}

	prom.IncDealTransition(target.Name, "ok")
	logger.Info("deal status advanced", "deal_id", dealID, "status", target.Name)
	return s.deals.Get(ctx, dealID)
}

// ListByStatus pages the deals currently in the named status.
func (s *DealService) ListByStatus(ctx context.Context, name string, page model.PageRequest) (model.Page[*model.Deal], error) {
	status, err := s.statuses.ByName(ctx, name)
	if err != nil {
		return model.Page[*model.Deal]{}, err
	}
	page = page.Normalize()
	deals, total, err := s.deals.List(ctx, model.DealFilter{StatusID: &status.ID, Page: page})
	if err != nil {
		return model.Page[*model.Deal]{}, err
	}
	return model.NewPage(deals, page, total), nil
}

// Recent pages the deals of one side that are still open for matching and
// were created within the configured window.
func (s *DealService) Recent(ctx context.Context, side model.Side, page model.PageRequest) (model.Page[*model.Deal], error) {
	var state model.MatchState
	switch side {
	case model.SideTrip:
		state = model.MatchTripMatched
	case model.SideShipment:
		state = model.MatchShipmentMatched
	default:
		return model.Page[*model.Deal]{}, model.InvalidArgument("side must be %q or %q", model.SideTrip, model.SideShipment)
	}

	since := s.now().UTC().Add(-s.opts.RecentWindow)
	page = page.Normalize()
	deals, total, err := s.deals.List(ctx, model.DealFilter{MatchState: &state, CreatedAfter: &since, Page: page})
	if err != nil {
		return model.Page[*model.Deal]{}, err
	}
	return model.NewPage(deals, page, total), nil
}

// SearchByAccount pages the deals whose paying account contains needle.
func (s *DealService) SearchByAccount(ctx context.Context, needle string, page model.PageRequest) (model.Page[*model.Deal], error) {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return model.Page[*model.Deal]{}, model.InvalidArgument("account search text is required")
	}
	page = page.Normalize()
	deals, total, err := s.deals.List(ctx, model.DealFilter{Account: needle, Page: page})
	if err != nil {
		return model.Page[*model.Deal]{}, err
	}
	return model.NewPage(deals, page, total), nil
}

func (s *DealService) Shipments(ctx context.Context, dealID int64, page model.PageRequest) (model.Page[*model.Shipment], error) {
	if _, err := s.deals.Get(ctx, dealID); err != nil {
		return model.Page[*model.Shipment]{}, err
	}
	page = page.Normalize()
	shipments, total, err := s.shipments.PageByDeal(ctx, dealID, page)
	if err != nil {
		return model.Page[*model.Shipment]{}, err
	}
	return model.NewPage(shipments, page, total), nil
}

// RemoveShipment takes a shipment off a trip-carrying deal and gives its
// weight back to the deal's available capacity.
func (s *DealService) RemoveShipment(ctx context.Context, dealID, shipmentID int64) (*model.Deal, error) {
	err := s.deals.WithinTransaction(ctx, func(ctx context.Context) error {
		deal, err := s.deals.Get(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.TripID == nil {
			return model.InvalidArgument("deal %d carries no trip", dealID)
		}
		if deal.Status != nil && deal.Status.IsTerminal() {
			return fmt.Errorf("%w: deal %d is %s", model.ErrInvalidTransition, dealID, deal.Status.Name)
		}

		shipment, err := s.shipments.Get(ctx, shipmentID)
		if err != nil {
			return err
		}
		if shipment.DealID == nil || *shipment.DealID != dealID {
			return model.InvalidArgument("shipment %d is not carried by deal %d", shipmentID, dealID)
		}

		if err := s.shipments.Detach(ctx, shipmentID, dealID); err != nil {
			if errors.Is(err, repository.ErrConcurrentUpdate) {
				return fmt.Errorf("%w: shipment %d moved concurrently", model.ErrConflict, shipmentID)
			}
			return err
		}
		available := min(deal.AvailableWeight+shipment.Weight, deal.FullWeight)
		err = s.deals.UpdateWeights(ctx, deal.ID, deal.Version, deal.FullWeight, available)
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			return fmt.Errorf("%w: deal %d changed concurrently", model.ErrConflict, dealID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("shipment removed from deal", "deal_id", dealID, "shipment_id", shipmentID)
	return s.deals.Get(ctx, dealID)
}

// RecordTransaction books a payment for a deal and marks the deal cashed.
func (s *DealService) RecordTransaction(ctx context.Context, dealID int64, req model.TransactionCreateRequest) (*model.Deal, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.providers.Get(ctx, req.ProviderID); err != nil {
		return nil, err
	}

	err := s.deals.WithinTransaction(ctx, func(ctx context.Context) error {
		deal, err := s.deals.Get(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.IsCashed {
			return fmt.Errorf("%w: deal %d is already paid", model.ErrConflict, dealID)
		}

		txn, err := s.txns.Create(ctx, &model.Transaction{
			ProviderID:  req.ProviderID,
			FromAccount: req.FromAccount,
			ToAccount:   req.ToAccount,
			Fees:        req.Fees,
			NetAmount:   req.NetAmount,
			Details:     req.Details,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		err = s.deals.MarkCashed(ctx, repository.Payment{
			DealID:        deal.ID,
			Version:       deal.Version,
			TransactionID: txn.ID,
			TotalPrice:    req.Total(),
			FromAccount:   req.FromAccount,
			ToAccount:     req.ToAccount,
		})
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			return fmt.Errorf("%w: deal %d changed concurrently", model.ErrConflict, dealID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.deals.Get(ctx, dealID)
}

func (s *DealService) CreateProvider(ctx context.Context, name string) (*model.AccountProvider, error) {
	if name == "" {
		return nil, model.InvalidArgument("provider name is required")
	}
	return s.providers.Create(ctx, name)
}

func (s *DealService) Providers(ctx context.Context) ([]*model.AccountProvider, error) {
	return s.providers.List(ctx)
}
