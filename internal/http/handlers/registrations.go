package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/service"
	"github.com/gin-gonic/gin"
)

const requestTimeout = 3 * time.Second

type RegistrationManager interface {
	Create(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error)
	Get(ctx context.Context, id string) (registration.Registration, error)
	FindByParticipant(ctx context.Context, eventID, email string) (registration.Registration, error)
	ListByEvent(ctx context.Context, eventID string, limit int, cursor string) (service.Page, error)
	Decide(ctx context.Context, id string, to registration.Status) (registration.Registration, error)
	Delete(ctx context.Context, id string) error
}

type AttendanceRecorder interface {
	Resolve(ctx context.Context, code string) (service.Scan, error)
	CheckIn(ctx context.Context, code string) (service.Scan, error)
	Uncheck(ctx context.Context, code string) (service.Scan, error)
	SetLeaderAttendance(ctx context.Context, regID string, attended bool) (service.Scan, error)
	SetMemberAttendance(ctx context.Context, regID, email string, attended bool) (service.Scan, error)
}

type RegistrationHandler struct {
	regs       RegistrationManager
	attendance AttendanceRecorder
}

func NewRegistrationHandler(regs RegistrationManager, attendance AttendanceRecorder) *RegistrationHandler {
	return &RegistrationHandler{regs: regs, attendance: attendance}
}

func requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), requestTimeout)
}

func (h *RegistrationHandler) Create(ctx *gin.Context) {
	var req registration.CreateRegistrationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	reg, err := h.regs.Create(cctx, req)
	if err != nil {
		RespondServiceError(ctx, err, "Could not create registration")
		return
	}

	ctx.Header("Location", "/registrations/"+reg.ID)
	ctx.JSON(http.StatusCreated, reg)
}

func (h *RegistrationHandler) Get(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx)
	defer cancel()

	reg, err := h.regs.Get(cctx, ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, err, "Could not load registration")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, reg)
}

// Update applies one of: an organizer status decision, the leader's
// attendance flag, or one member's attendance flag.
func (h *RegistrationHandler) Update(ctx *gin.Context) {
	var req registration.UpdateRegistrationRequest

	if !BindJSON(ctx, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		RespondServiceError(ctx, err, "")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := requestContext(ctx)
	defer cancel()

	var (
		reg registration.Registration
		err error
	)

	switch {
	case req.Status != nil:
		reg, err = h.regs.Decide(cctx, id, *req.Status)

	case req.CheckedIn != nil:
		var scan service.Scan
		scan, err = h.attendance.SetLeaderAttendance(cctx, id, *req.CheckedIn)
		reg = scan.Registration

	default:
		in := req.TeamMemberAttendance
		var scan service.Scan
		scan, err = h.attendance.SetMemberAttendance(cctx, id, in.MemberEmail, *in.Attended)
		reg = scan.Registration
	}

	if err != nil {
		RespondServiceError(ctx, err, "Could not update registration")
		return
	}

	ctx.JSON(http.StatusOK, reg)
}

func (h *RegistrationHandler) Delete(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx)
	defer cancel()

	if err := h.regs.Delete(cctx, ctx.Param("id")); err != nil {
		RespondServiceError(ctx, err, "Could not cancel registration")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ListForEvent pages an event's registrations. With ?email= it returns the
// single registration holding that participant.
func (h *RegistrationHandler) ListForEvent(ctx *gin.Context) {
	eventID := ctx.Param("id")

	cctx, cancel := requestContext(ctx)
	defer cancel()

	if email := ctx.Query("email"); email != "" {
		reg, err := h.regs.FindByParticipant(cctx, eventID, email)
		if err != nil {
			RespondServiceError(ctx, err, "Could not find registration")
			return
		}
		ctx.JSON(http.StatusOK, reg)
		return
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	page, err := h.regs.ListByEvent(cctx, eventID, limit, ctx.Query("cursor"))
	if err != nil {
		RespondServiceError(ctx, err, "Could not list registrations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"eventId":       eventID,
		"count":         len(page.Items),
		"registrations": page.Items,
		"nextCursor":    page.NextCursor,
		"hasMore":       page.HasMore,
	})
}
