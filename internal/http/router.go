package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/rollcall/internal/http/handlers"
	"github.com/geocoder89/rollcall/internal/http/middlewares"
	"github.com/geocoder89/rollcall/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type RouterDeps struct {
	Env            string
	ServiceName    string
	Log            *slog.Logger
	Prom           *observability.Prom
	Gatherer       prometheus.Gatherer
	Tokens         middlewares.TokenVerifier
	Registrations  handlers.RegistrationManager
	Attendance     handlers.AttendanceRecorder
	Invitations    handlers.InvitationAccepter
	ReadyChecks    map[string]func(context.Context) error
	AllowedOrigins []string
	// public (unauthenticated) requests per minute per client IP
	PublicRateLimit int
	// staff requests per minute per user; scanners at a door are bursty
	StaffRateLimit int
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.PublicRateLimit <= 0 {
		d.PublicRateLimit = 60
	}
	if d.StaffRateLimit <= 0 {
		d.StaffRateLimit = 600
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(middlewares.SecurityOptions{HSTS: d.Env != "dev"}))
	r.Use(middlewares.CORSMiddleware(d.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// health
	h := handlers.NewHealthHandler(d.ReadyChecks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	regs := handlers.NewRegistrationHandler(d.Registrations, d.Attendance)
	tickets := handlers.NewTicketHandler(d.Attendance)
	invites := handlers.NewInvitationHandler(d.Invitations)

	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	publicLimiter := middlewares.NewRateLimiter(d.PublicRateLimit, time.Minute)
	staffLimiter := middlewares.NewRateLimiter(d.StaffRateLimit, time.Minute)

	// public: registrants and invited members
	public := r.Group("/registrations")
	public.Use(publicLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		public.POST("", middlewares.RequireJSON(), regs.Create)
		public.POST("/accept-invite", middlewares.RequireJSON(), invites.Accept)
		public.GET("/qrcode/:code/png", tickets.PNG)
	}

	// organizer: scanners and the attendance UI
	staff := r.Group("")
	staff.Use(authMW.RequireAuth(), authMW.RequireRole(middlewares.RoleOrganizer, middlewares.RoleAdmin))
	staff.Use(staffLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	{
		staff.GET("/registrations/qrcode/:code", tickets.Resolve)
		staff.POST("/registrations/qrcode/:code/checkin", tickets.CheckIn)
		staff.DELETE("/registrations/qrcode/:code/checkin", tickets.Uncheck)

		staff.GET("/registrations/:id", regs.Get)
		staff.PUT("/registrations/:id", middlewares.RequireJSON(), regs.Update)
		staff.DELETE("/registrations/:id", regs.Delete)

		staff.GET("/events/:id/registrations", regs.ListForEvent)
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return r
}
