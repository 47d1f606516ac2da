package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/laser/internal/model"
	xhttp "github.com/nimasrn/laser/pkg/http"
)

type UserService interface {
	Register(ctx context.Context, req model.UserCreateRequest) (*model.UserApplication, error)
	UpdatePushToken(ctx context.Context, id int64, token string) error
}

type UserHandler struct {
	svc UserService
}

func RegisterUserRoutes(e *router.Group, h *UserHandler) {
	e.POST("/users", h.Register)
	e.PUT("/users/{id}/push-token", h.UpdatePushToken)
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

func (h *UserHandler) Register(ctx *xhttp.RequestCtx) {
	var req model.UserCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	user, err := h.svc.Register(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, user)
}

func (h *UserHandler) UpdatePushToken(ctx *xhttp.RequestCtx) {
	id, ok := pathInt64(ctx, "id")
	if !ok {
		return
	}
	var req pushTokenRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.UpdatePushToken(ctx, id, req.Token); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(xhttp.StatusNoContent)
}
