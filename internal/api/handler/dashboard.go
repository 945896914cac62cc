package handler

import (
	"errors"
	"net/http"

	"vehicle_parking/internal/api/middleware"
	"vehicle_parking/internal/repository"
	"vehicle_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	authService        *service.AuthService
	parkingService     *service.ParkingService
	reservationService *service.ReservationService
}

func NewDashboardHandler(as *service.AuthService, ps *service.ParkingService, rs *service.ReservationService) *DashboardHandler {
	return &DashboardHandler{authService: as, parkingService: ps, reservationService: rs}
}

// GET /dashboard/admin
func (h *DashboardHandler) AdminDashboard(c *gin.Context) {
	lots, err := h.parkingService.GetAllParkingLots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build dashboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

// GET /dashboard/user
func (h *DashboardHandler) UserDashboard(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)
	ctx := c.Request.Context()

	user, err := h.authService.GetUserByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build dashboard"})
		return
	}

	lots, err := h.parkingService.GetAllParkingLots(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build dashboard"})
		return
	}

	open, err := h.reservationService.GetOpenReservation(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build dashboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":         user.Username,
		"full_name":        user.FullName,
		"open_reservation": open, // null when the user is not parked
		"lots":             lots,
	})
}
