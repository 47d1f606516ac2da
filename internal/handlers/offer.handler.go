package handlers

import (
	"context"
	"iter"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/nimasrn/laser/internal/model"
	xhttp "github.com/nimasrn/laser/pkg/http"
)

const (
	defaultOfferLimit = 100
	maxOfferLimit     = 1000
)

type OfferService interface {
	Propose(ctx context.Context, req model.ProposeRequest) (*model.Offer, error)
	Accept(ctx context.Context, offerID int64) (*model.Offer, error)
	Withdraw(ctx context.Context, offerID int64) error
	ListByShipmentDeal(ctx context.Context, dealID int64) iter.Seq2[*model.Offer, error]
	ListByTripDeal(ctx context.Context, dealID int64) iter.Seq2[*model.Offer, error]
}

type OfferHandler struct {
	svc OfferService
}

func RegisterOfferRoutes(e *router.Group, h *OfferHandler) {
	e.POST("/offers", h.Propose)
	e.POST("/offers/{id}/accept", h.Accept)
	e.DELETE("/offers/{id}", h.Withdraw)
	e.GET("/deals/{id}/offers", h.ListByDeal)
}

func NewOfferHandler(svc OfferService) *OfferHandler {
	return &OfferHandler{svc: svc}
}

func (h *OfferHandler) Propose(ctx *xhttp.RequestCtx) {
	var req model.ProposeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	offer, err := h.svc.Propose(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, offer)
}

func (h *OfferHandler) Accept(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	offer, err := h.svc.Accept(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, offer)
}

func (h *OfferHandler) Withdraw(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	if err := h.svc.Withdraw(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(xhttp.StatusNoContent)
}

// ListByDeal collects at most limit offers of one deal, oldest first.
func (h *OfferHandler) ListByDeal(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}

	limit := defaultOfferLimit
	if v := query(ctx, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(ctx, xhttp.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxOfferLimit)
	}

	var offers iter.Seq2[*model.Offer, error]
	switch model.Side(query(ctx, "side")) {
	case model.SideShipment, "":
		offers = h.svc.ListByShipmentDeal(ctx, id)
	case model.SideTrip:
		offers = h.svc.ListByTripDeal(ctx, id)
	default:
		writeError(ctx, xhttp.StatusBadRequest, "side must be shipment or trip")
		return
	}

	items := make([]*model.Offer, 0)
	for o, err := range offers {
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		items = append(items, o)
		if len(items) == limit {
			break
		}
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}
