package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/nimasrn/laser/internal/model"
	xhttp "github.com/nimasrn/laser/pkg/http"
	"github.com/nimasrn/laser/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors to HTTP statuses. Anything unknown is
// logged and reported as an internal error without its details.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidArgument):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrStaleOffer), errors.Is(err, model.ErrConflict):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "path", string(ctx.Path()), "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
	}
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

// pathParam reads a named route parameter.
func pathParam(ctx *xhttp.RequestCtx, name string) string {
	switch v := ctx.UserValue(name).(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, bool) {
	id, err := strconv.ParseInt(pathParam(ctx, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, xhttp.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// pageRequest reads page, size and sort. Malformed numbers fall back to defaults.
func pageRequest(ctx *xhttp.RequestCtx) model.PageRequest {
	var p model.PageRequest
	if n, err := strconv.Atoi(query(ctx, "page")); err == nil {
		p.Page = n
	}
	if n, err := strconv.Atoi(query(ctx, "size")); err == nil {
		p.Size = n
	}
	p.Sort = strings.TrimSpace(query(ctx, "sort"))
	return p.Normalize()
}
