package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/nimasrn/laser/internal/model"
	xhttp "github.com/nimasrn/laser/pkg/http"
)

type DealService interface {
	Get(ctx context.Context, id int64) (*model.Deal, error)
	AdvanceStatus(ctx context.Context, dealID, statusID int64) (*model.Deal, error)
	ListByStatus(ctx context.Context, name string, page model.PageRequest) (model.Page[*model.Deal], error)
	SearchByAccount(ctx context.Context, needle string, page model.PageRequest) (model.Page[*model.Deal], error)
	Shipments(ctx context.Context, dealID int64, page model.PageRequest) (model.Page[*model.Shipment], error)
	RemoveShipment(ctx context.Context, dealID, shipmentID int64) (*model.Deal, error)
	Recent(ctx context.Context, side model.Side, page model.PageRequest) (model.Page[*model.Deal], error)
	RecordTransaction(ctx context.Context, dealID int64, req model.TransactionCreateRequest) (*model.Deal, error)
	CreateProvider(ctx context.Context, name string) (*model.AccountProvider, error)
	Providers(ctx context.Context) ([]*model.AccountProvider, error)
}

type StatusService interface {
	Sorted(ctx context.Context) ([]*model.DealStatus, error)
}

type DealHandler struct {
	svc      DealService
	statuses StatusService
}

func RegisterDealRoutes(e *router.Group, h *DealHandler) {
	e.GET("/statuses", h.ListStatuses)
	e.GET("/deals", h.ListDeals)
	e.GET("/deals/recent", h.RecentDeals)
	e.GET("/deals/{id}", h.GetDeal)
	e.PUT("/deals/{id}/status", h.AdvanceStatus)
	e.POST("/deals/{id}/transactions", h.RecordTransaction)
	e.GET("/deals/{id}/shipments", h.ListShipments)
	e.DELETE("/deals/{id}/shipments/{shipmentId}", h.RemoveShipment)
	e.GET("/providers", h.ListProviders)
	e.POST("/providers", h.CreateProvider)
}

func NewDealHandler(svc DealService, statuses StatusService) *DealHandler {
	return &DealHandler{
		svc:      svc,
		statuses: statuses,
	}
}

type advanceStatusRequest struct {
	StatusID int64 `json:"status_id"`
}

type createProviderRequest struct {
	Name string `json:"name"`
}

func (h *DealHandler) ListStatuses(ctx *xhttp.RequestCtx) {
	statuses, err := h.statuses.Sorted(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, statuses)
}

func (h *DealHandler) GetDeal(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	deal, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, deal)
}

func (h *DealHandler) AdvanceStatus(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	var req advanceStatusRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.StatusID <= 0 {
		writeError(ctx, xhttp.StatusBadRequest, "status_id is required")
		return
	}
	deal, err := h.svc.AdvanceStatus(ctx, id, req.StatusID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, deal)
}

// ListDeals lists by ?account= when given, otherwise by the required ?status=.
func (h *DealHandler) ListDeals(ctx *xhttp.RequestCtx) {
	if account := query(ctx, "account"); account != "" {
		page, err := h.svc.SearchByAccount(ctx, account, pageRequest(ctx))
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		writeJSON(ctx, xhttp.StatusOK, page)
		return
	}

	status := query(ctx, "status")
	if status == "" {
		writeError(ctx, xhttp.StatusBadRequest, "status is required")
		return
	}
	page, err := h.svc.ListByStatus(ctx, status, pageRequest(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, page)
}

func (h *DealHandler) RecentDeals(ctx *xhttp.RequestCtx) {
	page, err := h.svc.Recent(ctx, model.Side(query(ctx, "side")), pageRequest(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, page)
}

func (h *DealHandler) RecordTransaction(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	var req model.TransactionCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	deal, err := h.svc.RecordTransaction(ctx, id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, deal)
}

func (h *DealHandler) ListShipments(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	page, err := h.svc.Shipments(ctx, id, pageRequest(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, page)
}

func (h *DealHandler) RemoveShipment(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	shipmentID, ok := pathInt64(ctx, "shipmentId")
	if !ok {
		return
	}
	deal, err := h.svc.RemoveShipment(ctx, id, shipmentID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, deal)
}

func (h *DealHandler) ListProviders(ctx *xhttp.RequestCtx) {
	providers, err := h.svc.Providers(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, providers)
}

func (h *DealHandler) CreateProvider(ctx *xhttp.RequestCtx) {
	var req createProviderRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	provider, err := h.svc.CreateProvider(ctx, req.Name)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.Header.Set("Location", "/api/v1/providers/"+strconv.FormatInt(provider.ID, 10))
	writeJSON(ctx, xhttp.StatusCreated, provider)
}
