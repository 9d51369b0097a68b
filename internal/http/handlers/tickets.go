package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

const ticketPNGSize = 256

type TicketHandler struct {
	attendance AttendanceRecorder
}

func NewTicketHandler(attendance AttendanceRecorder) *TicketHandler {
	return &TicketHandler{attendance: attendance}
}

// Resolve answers a scanner: who holds this ticket and whether scanning is
// open for the event.
func (h *TicketHandler) Resolve(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx)
	defer cancel()

	scan, err := h.attendance.Resolve(cctx, ctx.Param("code"))
	if err != nil {
		RespondServiceError(ctx, err, "Could not resolve ticket")
		return
	}

	ctx.JSON(http.StatusOK, scan)
}

func (h *TicketHandler) CheckIn(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx)
	defer cancel()

	scan, err := h.attendance.CheckIn(cctx, ctx.Param("code"))
	if err != nil {
		RespondServiceError(ctx, err, "Could not check in")
		return
	}

	ctx.JSON(http.StatusOK, scan)
}

func (h *TicketHandler) Uncheck(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx)
	defer cancel()

	scan, err := h.attendance.Uncheck(cctx, ctx.Param("code"))
	if err != nil {
		RespondServiceError(ctx, err, "Could not undo check-in")
		return
	}

	ctx.JSON(http.StatusOK, scan)
}

// PNG renders the ticket code itself; it does not look anything up.
func (h *TicketHandler) PNG(ctx *gin.Context) {
	code := ctx.Param("code")
	if code == "" {
		RespondBadRequest(ctx, "code is required", nil)
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, ticketPNGSize)
	if err != nil {
		RespondInternal(ctx, "Could not render ticket")
		return
	}

	ctx.Header("Cache-Control", "private, max-age=86400")
	ctx.Data(http.StatusOK, "image/png", png)
}
