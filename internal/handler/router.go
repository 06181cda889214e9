package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reservatec-core/internal/handler/api"
	"reservatec-core/internal/handler/middleware"
	"reservatec-core/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, reservationHandler *api.ReservationHandler) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, reservationHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, reservationHandler *api.ReservationHandler) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	apiGroup.Use(middleware.RequireIdentity())
	{
		reservations := apiGroup.Group("/reservations")
		{
			addRoutes(reservations, []route{
				{Method: http.MethodPost, Path: "", Handler: reservationHandler.Claim},
				{Method: http.MethodGet, Path: "", Handler: reservationHandler.GetUserReservations},
				{Method: http.MethodGet, Path: "/countdown", Handler: reservationHandler.Countdown},
				{Method: http.MethodGet, Path: "/:id", Handler: reservationHandler.GetReservation},
				{Method: http.MethodPost, Path: "/:id/confirm", Handler: reservationHandler.Confirm},
				{Method: http.MethodPost, Path: "/:id/cancel", Handler: reservationHandler.Cancel},
				{Method: http.MethodDelete, Path: "/:id/claim", Handler: reservationHandler.AbandonClaim},
				{Method: http.MethodPost, Path: "/:id/attendance", Handler: reservationHandler.ConfirmAttendance},
			})

			adminOnly := reservations.Group("")
			adminOnly.Use(middleware.RequireAdmin())
			addRoutes(adminOnly, []route{
				{Method: http.MethodDelete, Path: "/:id", Handler: reservationHandler.Deactivate},
			})
		}

		availability := apiGroup.Group("/availability")
		{
			addRoutes(availability, []route{
				{Method: http.MethodGet, Path: "/occupied", Handler: reservationHandler.OccupiedTimeslots},
				{Method: http.MethodGet, Path: "/fully-booked", Handler: reservationHandler.FullyBookedDates},
			})
		}

		stats := apiGroup.Group("/stats")
		stats.Use(middleware.RequireAdmin())
		{
			addRoutes(stats, []route{
				{Method: http.MethodGet, Path: "/monthly", Handler: reservationHandler.MonthlyStats},
				{Method: http.MethodGet, Path: "/usage", Handler: reservationHandler.SpaceUsage},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
