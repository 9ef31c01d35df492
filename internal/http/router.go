package api

import (
	"log"
	stdhttp "net/http"

	"passagens/internal/booking"
	"passagens/internal/cache"
	intconfig "passagens/internal/config"
	h "passagens/internal/http/handlers"
	"passagens/internal/http/middleware"
	"passagens/internal/metrics"
	"passagens/internal/services"

	"github.com/gin-gonic/gin"
)

// RouterDeps contains everything the routes are built from.
type RouterDeps struct {
	Env       intconfig.Env
	Directory *booking.Directory
	Sessions  services.SessionService
	Bookings  services.BookingService
	Auth      services.AuthService
	Payments  services.PaymentService
	Docs      services.DocsService
	Storage   services.StorageService
	Responses cache.ResponseCacheInterface
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Env.GinMode != "" {
		gin.SetMode(deps.Env.GinMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Session(),
		middleware.Logger(),
		gin.Recovery(),
		middleware.CORS(deps.Env.CORSOrigins),
		metrics.Middleware(),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: falha ao configurar proxies confiáveis: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "rota não encontrada",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	r.GET("/metrics", metrics.Handler())

	sessions := h.NewSessionHandler(deps.Sessions, deps.Directory)
	auth := h.NewAuthHandler(deps.Auth, deps.Sessions)
	bookings := h.NewBookingHandler(deps.Bookings, deps.Docs, deps.Storage)
	payments := h.NewPaymentHandler(deps.Payments, deps.Sessions)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		api.GET("/localities", sessions.Localities)

		// Gateway callbacks carry no user token.
		api.POST("/payments/webhook", payments.Webhook)

		authed := api.Group("", middleware.AuthOptional(deps.Auth.ParseToken))

		// Booking flow
		session := authed.Group("/session")
		session.GET("", sessions.Get)
		session.DELETE("", sessions.Reset)
		session.POST("/search", sessions.Search)
		session.GET("/trips", sessions.LoadTrips)
		session.POST("/trips/select", sessions.SelectTrip)
		session.POST("/seats/:seat/toggle", sessions.ToggleSeat)
		session.PUT("/passenger", sessions.EditPassenger)
		session.POST("/confirm", sessions.Confirm)
		session.POST("/back", sessions.Back)

		// Identity
		authGroup := authed.Group("/auth")
		authGroup.POST("/code", auth.RequestCode)
		authGroup.POST("/verify", auth.VerifyCode)

		// Bookings & tickets
		bookingGroup := authed.Group("/bookings", middleware.RequireAuth())
		bookingGroup.GET("", bookings.List)
		bookingGroup.GET("/:id/ticket", bookings.Ticket)
		bookingGroup.POST("/:id/ticket/upload", bookings.UploadTicket)

		// Payments
		paymentGroup := authed.Group("/payments", middleware.RequireAuth())
		paymentGroup.POST("", middleware.Idempotency(deps.Responses), payments.Create)
		paymentGroup.GET("/:id", payments.Get)
	}

	return r
}
