package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/rollcall/internal/service"
	"github.com/gin-gonic/gin"
)

type InvitationAccepter interface {
	AcceptInvite(ctx context.Context, token string) (service.AcceptResult, error)
}

type InvitationHandler struct {
	invites InvitationAccepter
}

func NewInvitationHandler(invites InvitationAccepter) *InvitationHandler {
	return &InvitationHandler{invites: invites}
}

type acceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *InvitationHandler) Accept(ctx *gin.Context) {
	var req acceptInviteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	res, err := h.invites.AcceptInvite(cctx, req.Token)
	if err != nil {
		RespondServiceError(ctx, err, "Could not accept invitation")
		return
	}

	ctx.JSON(http.StatusOK, res)
}
