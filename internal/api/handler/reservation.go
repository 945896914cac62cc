package handler

import (
	"errors"
	"net/http"
	"strconv"

	"vehicle_parking/internal/api/middleware"
	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/repository"
	"vehicle_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	reservationService *service.ReservationService
}

func NewReservationHandler(rs *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: rs}
}

// POST /reservations
func (h *ReservationHandler) BookSpot(c *gin.Context) {
	var dto domain.BookReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	res, err := h.reservationService.BookSpot(c.Request.Context(), userID, dto.LotID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "parking lot not found"})
		case errors.Is(err, repository.ErrNoAvailableSpot):
			c.JSON(http.StatusConflict, gin.H{"error": "parking lot is full"})
		case errors.Is(err, repository.ErrOpenReservation):
			c.JSON(http.StatusConflict, gin.H{"error": "you already have an open reservation"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not book a spot"})
		}
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /reservations/:id/release
func (h *ReservationHandler) ReleaseSpot(c *gin.Context) {
	reservationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	res, err := h.reservationService.ReleaseSpot(c.Request.Context(), reservationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		case errors.Is(err, service.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "this reservation belongs to another user"})
		case errors.Is(err, repository.ErrAlreadyClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "reservation is already released"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not release the spot"})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /reservations/history
func (h *ReservationHandler) GetHistory(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)
	history, err := h.reservationService.GetHistory(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch reservation history"})
		return
	}
	c.JSON(http.StatusOK, history)
}

// GET /reservations (admin)
func (h *ReservationHandler) GetAllClosed(c *gin.Context) {
	reservations, err := h.reservationService.GetAllClosed(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch reservations"})
		return
	}
	c.JSON(http.StatusOK, reservations)
}
