package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/rollcall/internal/domain/event"
	"github.com/geocoder89/rollcall/internal/domain/registration"
	"github.com/geocoder89/rollcall/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusNotFound, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, code, message string, details interface{}) {
	RespondError(ctx, http.StatusForbidden, code, message, details)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string, details interface{}) {
	RespondError(ctx, http.StatusConflict, code, message, details)
}

// RespondServiceError maps core errors onto the error envelope. Messages for
// window, duplicate and check-in conflicts are meant to be shown verbatim.
func RespondServiceError(ctx *gin.Context, err error, fallback string) {
	var (
		validation *registration.ValidationError
		duplicate  *registration.DuplicateEmailError
		window     *event.WindowError
		already    *registration.AlreadyCheckedInError
	)

	switch {
	case errors.As(err, &validation):
		var details interface{}
		if validation.Field != "" {
			details = gin.H{"fields": []FieldError{{Field: validation.Field, Message: validation.Message}}}
		}
		RespondBadRequest(ctx, validation.Error(), details)

	case errors.As(err, &window):
		RespondForbidden(ctx, windowCode(window), window.Error(), gin.H{
			"boundary": window.Boundary.Format("2006-01-02"),
		})

	case errors.As(err, &duplicate):
		RespondConflict(ctx, "duplicate_registration", duplicate.Error(), gin.H{"email": duplicate.Email})

	case errors.As(err, &already):
		RespondConflict(ctx, "already_checked_in", already.Error(), gin.H{"isLeader": already.IsLeader})

	case errors.Is(err, registration.ErrInvalidTransition):
		RespondConflict(ctx, "invalid_transition", err.Error(), nil)

	case errors.Is(err, event.ErrNotFound):
		RespondNotFound(ctx, "event_not_found", "Event not found")

	case errors.Is(err, registration.ErrTicketNotFound):
		RespondNotFound(ctx, "ticket_not_found", "Ticket not found")

	case errors.Is(err, registration.ErrInvalidToken):
		RespondNotFound(ctx, "invalid_token", "Invitation not found")

	case errors.Is(err, registration.ErrNotFound):
		RespondNotFound(ctx, "not_found", "Registration not found")

	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "request_failed",
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
			"err", err,
		)
		RespondInternal(ctx, fallback)
	}
}

func windowCode(w *event.WindowError) string {
	switch {
	case errors.Is(w, event.ErrScanNotYetOpen):
		return "scan_not_yet_open"
	case errors.Is(w, event.ErrScanWindowClosed):
		return "scan_window_closed"
	case w.Opens:
		return "registration_not_open"
	default:
		return "registration_closed"
	}
}
