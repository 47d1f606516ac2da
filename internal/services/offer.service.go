package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/laser/internal/matching"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/internal/repository"
	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/prom"
)

type OfferRepository interface {
	Create(ctx context.Context, o *model.Offer) (*model.Offer, error)
	Get(ctx context.Context, id int64) (*model.Offer, error)
	FindPair(ctx context.Context, a, b int64) (*model.Offer, error)
	ListByDeal(ctx context.Context, side model.Side, dealID, afterID int64, limit int) ([]*model.Offer, error)
	Transition(ctx context.Context, id int64, from, to model.OfferStatus) error
	CloseOthers(ctx context.Context, dealIDs []int64, keepID int64) (int64, error)
	DeletePending(ctx context.Context, id int64) error
}

type ShipmentMover interface {
	Reassign(ctx context.Context, fromDealID, toDealID int64) (int64, error)
}

// EventPublisher is the offer event stream.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type OfferService struct {
	deals     DealRepository
	offers    OfferRepository
	shipments ShipmentMover
	statuses  *StatusService
	events    EventPublisher
	pageSize  int
	now       func() time.Time
}

func NewOfferService(deals DealRepository, offers OfferRepository, shipments ShipmentMover, statuses *StatusService, events EventPublisher, pageSize int) *OfferService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &OfferService{
		deals:     deals,
		offers:    offers,
		shipments: shipments,
		statuses:  statuses,
		events:    events,
		pageSize:  pageSize,
		now:       time.Now,
	}
}

// Propose records a pending offer between a shipment-side and a trip-side
// deal. Arguments given in mirrored order are swapped back.
func (s *OfferService) Propose(ctx context.Context, req model.ProposeRequest) (*model.Offer, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	shipment, trip, err := s.pair(ctx, req.ShipmentDealID, req.TripDealID)
	if err != nil {
		prom.IncOffer("propose", "rejected")
		return nil, err
	}

	if _, err := s.offers.FindPair(ctx, shipment.ID, trip.ID); err == nil {
		prom.IncOffer("propose", "rejected")
		return nil, model.ErrDuplicateOffer
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	if !matching.CanCarry(trip, shipment) {
		prom.IncOffer("propose", "rejected")
		return nil, fmt.Errorf("%w: needs %.2f kg by %v, trip %d has %.2f kg arriving %v",
			model.ErrCapacityExceeded, shipment.FullWeight, shipment.ExpectedDate, trip.ID, trip.AvailableWeight, trip.ArrivalDate)
	}

	offer, err := s.offers.Create(ctx, &model.Offer{
		ShipmentDealID: shipment.ID,
		TripDealID:     trip.ID,
		Status:         model.OfferPending,
		SenderID:       req.SenderID,
	})
	if err != nil {
		prom.IncOffer("propose", "error")
		return nil, err
	}
	prom.IncOffer("propose", "ok")

	recipient := deref(trip.DeliverID)
	if recipient == req.SenderID {
		recipient = deref(shipment.OwnerID)
	}
	s.publish(ctx, model.OfferEventProposed, offer, recipient)
	return offer, nil
}

// pair loads both deals, checks they are open and returns them shipment side first.
func (s *OfferService) pair(ctx context.Context, a, b int64) (shipment, trip *model.Deal, err error) {
	first, err := s.deals.Get(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.deals.Get(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range []*model.Deal{first, second} {
		if !d.IsWaiting() {
			return nil, nil, fmt.Errorf("%w: deal %d is no longer waiting", model.ErrStaleOffer, d.ID)
		}
	}

	firstSide, ok1 := first.Side()
	secondSide, ok2 := second.Side()
	if !ok1 || !ok2 {
		return nil, nil, model.InvalidArgument("deals %d and %d are not both open for matching", a, b)
	}
	if firstSide == secondSide {
		return nil, nil, model.ErrSameSide
	}
	if firstSide == model.SideTrip {
		return second, first, nil
	}
	return first, second, nil
}

// Accept binds the two deals of a pending offer to each other in one
// transaction. Losing a race against another accept yields ErrStaleOffer.
func (s *OfferService) Accept(ctx context.Context, offerID int64) (*model.Offer, error) {
	var (
		accepted  *model.Offer
		recipient int64
	)
	err := s.deals.WithinTransaction(ctx, func(ctx context.Context) error {
		offer, err := s.offers.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.Status != model.OfferPending {
			return fmt.Errorf("%w: offer %d is %s", model.ErrStaleOffer, offerID, offer.Status)
		}

		waiting, err := s.statuses.BySequence(ctx, model.SequenceWaiting)
		if err != nil {
			return err
		}
		pending, err := s.statuses.BySequence(ctx, model.SequencePending)
		if err != nil {
			return err
		}

		shipment, err := s.deals.Get(ctx, offer.ShipmentDealID)
		if err != nil {
			return err
		}
		trip, err := s.deals.Get(ctx, offer.TripDealID)
		if err != nil {
			return err
		}
		if !shipment.IsWaiting() || !trip.IsWaiting() ||
			shipment.MatchState != model.MatchShipmentMatched || trip.MatchState != model.MatchTripMatched {
			return fmt.Errorf("%w: deals of offer %d are already bound", model.ErrStaleOffer, offerID)
		}

		err = s.deals.BindTrip(ctx, repository.BindTrip{
			DealID:        trip.ID,
			Version:       trip.Version,
			FromStatusID:  waiting.ID,
			ToStatusID:    pending.ID,
			Weight:        shipment.FullWeight,
			OwnerID:       shipment.OwnerID,
			CounterpartID: shipment.ID,
		})
		if err != nil {
			return stale(err, offerID)
		}

		err = s.deals.BindShipment(ctx, repository.BindShipment{
			DealID:        shipment.ID,
			Version:       shipment.Version,
			FromStatusID:  waiting.ID,
			ToStatusID:    pending.ID,
			TripID:        trip.TripID,
			DeliverID:     trip.DeliverID,
			CounterpartID: trip.ID,
		})
		if err != nil {
			return stale(err, offerID)
		}

		if _, err := s.shipments.Reassign(ctx, shipment.ID, trip.ID); err != nil {
			return fmt.Errorf("move shipments: %w", err)
		}

		if err := s.offers.Transition(ctx, offer.ID, model.OfferPending, model.OfferAccepted); err != nil {
			return stale(err, offerID)
		}
		closed, err := s.offers.CloseOthers(ctx, []int64{shipment.ID, trip.ID}, offer.ID)
		if err != nil {
			return fmt.Errorf("close competing offers: %w", err)
		}
		if closed > 0 {
			logger.Debug("competing offers closed", "offer_id", offer.ID, "closed", closed)
		}

		offer.Status = model.OfferAccepted
		accepted = offer
		recipient = offer.SenderID
		return nil
	})
	if err != nil {
		prom.IncOffer("accept", "rejected")
		return nil, err
	}

	prom.IncOffer("accept", "ok")
	s.publish(ctx, model.OfferEventAccepted, accepted, recipient)
	return accepted, nil
}

// Withdraw deletes a pending offer.
func (s *OfferService) Withdraw(ctx context.Context, offerID int64) error {
	offer, err := s.offers.Get(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.Status != model.OfferPending {
		return fmt.Errorf("%w: offer %d is %s", model.ErrStaleOffer, offerID, offer.Status)
	}
	if err := s.offers.DeletePending(ctx, offerID); err != nil {
		return stale(err, offerID)
	}
	prom.IncOffer("withdraw", "ok")
	return nil
}

// ListByShipmentDeal iterates the offers made for a shipment-side deal,
// reading from storage one page at a time as the caller advances.
func (s *OfferService) ListByShipmentDeal(ctx context.Context, dealID int64) iter.Seq2[*model.Offer, error] {
	return s.list(ctx, model.SideShipment, dealID)
}

// ListByTripDeal iterates the offers made for a trip-side deal.
func (s *OfferService) ListByTripDeal(ctx context.Context, dealID int64) iter.Seq2[*model.Offer, error] {
	return s.list(ctx, model.SideTrip, dealID)
}

func (s *OfferService) list(ctx context.Context, side model.Side, dealID int64) iter.Seq2[*model.Offer, error] {
	return func(yield func(*model.Offer, error) bool) {
		if _, err := s.deals.Get(ctx, dealID); err != nil {
			yield(nil, err)
			return
		}
		var after int64
		for {
			page, err := s.offers.ListByDeal(ctx, side, dealID, after, s.pageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, o := range page {
				if !yield(o, nil) {
					return
				}
				after = o.ID
			}
			if len(page) < s.pageSize {
				return
			}
		}
	}
}

// publish emits an offer event after commit. Delivery is best effort: the
// offer stands even when the stream is unavailable.
func (s *OfferService) publish(ctx context.Context, typ model.OfferEventType, offer *model.Offer, recipient int64) {
	if s.events == nil {
		return
	}
	event := model.OfferEvent{
		ID:             uuid.NewString(),
		Type:           typ,
		OfferID:        offer.ID,
		ShipmentDealID: offer.ShipmentDealID,
		TripDealID:     offer.TripDealID,
		SenderID:       offer.SenderID,
		RecipientID:    recipient,
		OccurredAt:     s.now().UTC(),
	}
	if _, err := s.events.PublishJSON(ctx, event, map[string]string{"type": string(typ)}); err != nil {
		logger.Error("offer event not published", "event", typ, "offer_id", offer.ID, "error", err)
	}
}

func stale(err error, offerID int64) error {
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return fmt.Errorf("%w: offer %d lost a concurrent update", model.ErrStaleOffer, offerID)
	}
	return err
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
