package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/laser/internal/model"
	xhttp "github.com/nimasrn/laser/pkg/http"
)

type CatalogService interface {
	CreateLocation(ctx context.Context, req model.LocationCreateRequest) (*model.Location, error)
	SearchLocations(ctx context.Context, needle string) ([]*model.Location, error)
	LocationByCity(ctx context.Context, city string) (*model.Location, error)
	LocationByAirport(ctx context.Context, code string) (*model.Location, error)
	CreateTrip(ctx context.Context, req model.TripCreateRequest) (*model.Deal, error)
	TripsByIdentifier(ctx context.Context, identifier string) ([]*model.Trip, error)
	ListTrips(ctx context.Context, q model.TripQuery) (model.Page[*model.Trip], error)
	CreateShipments(ctx context.Context, req model.ShipmentBatchRequest) (*model.Deal, error)
	UpdateShipment(ctx context.Context, id int64, in model.ShipmentInput) (*model.Shipment, error)
	CreateShipmentType(ctx context.Context, t model.ShipmentType) (*model.ShipmentType, error)
	ShipmentTypes(ctx context.Context) ([]*model.ShipmentType, error)
}

type CatalogHandler struct {
	svc CatalogService
}

func RegisterCatalogRoutes(e *router.Group, h *CatalogHandler) {
	e.POST("/locations", h.CreateLocation)
	e.GET("/locations", h.SearchLocations)
	e.GET("/locations/city/{city}", h.LocationByCity)
	e.GET("/locations/airport/{code}", h.LocationByAirport)

	e.POST("/trips", h.CreateTrip)
	e.GET("/trips", h.ListTrips)
	e.GET("/trips/{identifier}", h.TripsByIdentifier)

	e.POST("/shipments", h.CreateShipments)
	e.PUT("/shipments/{id}", h.UpdateShipment)
	e.GET("/shipment-types", h.ListShipmentTypes)
	e.POST("/shipment-types", h.CreateShipmentType)
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) CreateLocation(ctx *xhttp.RequestCtx) {
	var req model.LocationCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	loc, err := h.svc.CreateLocation(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, loc)
}

func (h *CatalogHandler) SearchLocations(ctx *xhttp.RequestCtx) {
	locs, err := h.svc.SearchLocations(ctx, query(ctx, "q"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, locs)
}

func (h *CatalogHandler) LocationByCity(ctx *xhttp.RequestCtx) {
	loc, err := h.svc.LocationByCity(ctx, pathParam(ctx, "city"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, loc)
}

func (h *CatalogHandler) LocationByAirport(ctx *xhttp.RequestCtx) {
	loc, err := h.svc.LocationByAirport(ctx, pathParam(ctx, "code"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, loc)
}

func (h *CatalogHandler) CreateTrip(ctx *xhttp.RequestCtx) {
	var req model.TripCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	deal, err := h.svc.CreateTrip(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, deal)
}

func (h *CatalogHandler) ListTrips(ctx *xhttp.RequestCtx) {
	page, err := h.svc.ListTrips(ctx, model.TripQuery{
		From: query(ctx, "from"),
		To:   query(ctx, "to"),
		Page: pageRequest(ctx),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, page)
}

func (h *CatalogHandler) TripsByIdentifier(ctx *xhttp.RequestCtx) {
	trips, err := h.svc.TripsByIdentifier(ctx, pathParam(ctx, "identifier"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, trips)
}

func (h *CatalogHandler) CreateShipments(ctx *xhttp.RequestCtx) {
	var req model.ShipmentBatchRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	deal, err := h.svc.CreateShipments(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, deal)
}

func (h *CatalogHandler) UpdateShipment(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	var in model.ShipmentInput
	if err := readJSON(ctx, &in); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	shipment, err := h.svc.UpdateShipment(ctx, id, in)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, shipment)
}

func (h *CatalogHandler) ListShipmentTypes(ctx *xhttp.RequestCtx) {
	types, err := h.svc.ShipmentTypes(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, types)
}

func (h *CatalogHandler) CreateShipmentType(ctx *xhttp.RequestCtx) {
	var req model.ShipmentType
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	t, err := h.svc.CreateShipmentType(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, t)
}
