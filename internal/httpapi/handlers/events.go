package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/whisperbox/internal/common"
	"github.com/suPer8Hu/whisperbox/internal/dialog"
	"github.com/suPer8Hu/whisperbox/internal/logging"
	"github.com/suPer8Hu/whisperbox/internal/users"
)

const pingTimeout = 2 * time.Second

type textReq struct {
	User users.Profile `json:"user"`
	Text string        `json:"text"`
}

type tokenReq struct {
	User  users.Profile `json:"user"`
	Token string        `json:"token" binding:"required"`
}

type deepLinkReq struct {
	User users.Profile `json:"user"`
	Slug string        `json:"slug" binding:"required"`
}

func (h *Handler) Ping(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("dependency", name).Msg("health check failed")
			common.Fail(c, http.StatusServiceUnavailable, 50301, name+" unavailable")
			return
		}
	}
	common.OK(c, gin.H{"pong": true})
}

func (h *Handler) PostText(c *gin.Context) {
	var req textReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 40001, "invalid json")
		return
	}
	reply, err := h.Ctrl.HandleText(c.Request.Context(), req.User, req.Text)
	respond(c, reply, err)
}

func (h *Handler) PostToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 40001, "invalid json")
		return
	}
	reply, err := h.Ctrl.HandleToken(c.Request.Context(), req.User, req.Token)
	respond(c, reply, err)
}

func (h *Handler) PostDeepLink(c *gin.Context) {
	var req deepLinkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 40001, "invalid json")
		return
	}
	reply, err := h.Ctrl.HandleDeepLink(c.Request.Context(), req.User, req.Slug)
	respond(c, reply, err)
}

// PostEvent accepts the same envelope the worker reads from the inbound queue.
func (h *Handler) PostEvent(c *gin.Context) {
	var ev dialog.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		common.Fail(c, http.StatusBadRequest, 40001, "invalid json")
		return
	}
	if ev.EventID == "" {
		if id, err := common.NewULID(); err == nil {
			ev.EventID = id
		}
	}
	reply, err := h.Ctrl.Dispatch(c.Request.Context(), ev)
	respond(c, reply, err)
}

func respond(c *gin.Context, reply *dialog.Reply, err error) {
	if err == nil {
		common.OK(c, reply)
		return
	}
	switch {
	case errors.Is(err, common.ErrValidation):
		common.Fail(c, http.StatusBadRequest, 40002, err.Error())
	case errors.Is(err, common.ErrPermissionDenied):
		common.Fail(c, http.StatusForbidden, 40301, "permission denied")
	case errors.Is(err, common.ErrNotFound):
		common.Fail(c, http.StatusNotFound, 40401, "not found")
	default:
		logging.FromContext(c.Request.Context()).Error().Err(err).Msg("turn failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "temporarily unavailable")
	}
}
