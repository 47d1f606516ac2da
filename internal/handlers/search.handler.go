package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/laser/internal/model"
	xhttp "github.com/nimasrn/laser/pkg/http"
)

type SearchService interface {
	SearchTrips(ctx context.Context, req model.SearchRequest) (model.Page[*model.Deal], error)
	SearchShipments(ctx context.Context, req model.SearchRequest) (model.Page[*model.Deal], error)
}

type SearchHandler struct {
	svc SearchService
}

func RegisterSearchRoutes(e *router.Group, h *SearchHandler) {
	e.GET("/search/trips", h.SearchTrips)
	e.GET("/search/shipments", h.SearchShipments)
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func searchRequest(ctx *xhttp.RequestCtx) model.SearchRequest {
	return model.SearchRequest{
		From:   query(ctx, "from"),
		To:     query(ctx, "to"),
		Weight: query(ctx, "weight"),
		Date:   query(ctx, "date"),
		Page:   pageRequest(ctx),
	}
}

func (h *SearchHandler) SearchTrips(ctx *xhttp.RequestCtx) {
	page, err := h.svc.SearchTrips(ctx, searchRequest(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, page)
}

func (h *SearchHandler) SearchShipments(ctx *xhttp.RequestCtx) {
	page, err := h.svc.SearchShipments(ctx, searchRequest(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, page)
}
