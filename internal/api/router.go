package api

import (
	"vehicle_parking/internal/api/handler"
	"vehicle_parking/internal/api/middleware"
	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	authService *service.AuthService,
	parkingService *service.ParkingService,
	reservationService *service.ReservationService,
	authMw *middleware.AuthMiddleware,
	denylist middleware.TokenDenylist,
	hub *handler.AvailabilityHub,
) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Live availability feed; no auth needed to watch spot counts change.
	wsHandler := handler.NewWebSocketHandler(hub)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(authService, denylist)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", authMw.Authenticate(), authHandler.Logout)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		lotHandler := handler.NewParkingLotHandler(parkingService)
		spotHandler := handler.NewParkingSpotHandler(parkingService)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin), lotHandler.CreateParkingLot)
			lotRoutes.GET("", lotHandler.GetAllParkingLots)
			lotRoutes.GET("/:id", lotHandler.GetParkingLotByID)
			lotRoutes.PUT("/:id", authMw.AuthorizeRole(domain.RoleAdmin), lotHandler.UpdateParkingLot)
			lotRoutes.DELETE("/:id", authMw.AuthorizeRole(domain.RoleAdmin), lotHandler.DeleteParkingLot)
			lotRoutes.GET("/:id/spots", authMw.AuthorizeRole(domain.RoleAdmin), spotHandler.GetSpotsByLotID)
		}

		reservationHandler := handler.NewReservationHandler(reservationService)
		reservationRoutes := v1.Group("/reservations")
		{
			reservationRoutes.POST("", authMw.AuthorizeRole(domain.RoleUser), reservationHandler.BookSpot)
			reservationRoutes.POST("/:id/release", authMw.AuthorizeRole(domain.RoleUser), reservationHandler.ReleaseSpot)
			reservationRoutes.GET("/history", authMw.AuthorizeRole(domain.RoleUser), reservationHandler.GetHistory)
			reservationRoutes.GET("", authMw.AuthorizeRole(domain.RoleAdmin), reservationHandler.GetAllClosed)
		}

		dashboardHandler := handler.NewDashboardHandler(authService, parkingService, reservationService)
		dashboardRoutes := v1.Group("/dashboard")
		{
			dashboardRoutes.GET("/admin", authMw.AuthorizeRole(domain.RoleAdmin), dashboardHandler.AdminDashboard)
			dashboardRoutes.GET("/user", authMw.AuthorizeRole(domain.RoleUser), dashboardHandler.UserDashboard)
		}
	}
	return r
}
