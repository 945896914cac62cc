package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"vehicle_parking/internal/api/middleware"
	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *service.AuthService
	denylist    middleware.TokenDenylist
}

func NewAuthHandler(as *service.AuthService, denylist middleware.TokenDenylist) *AuthHandler {
	return &AuthHandler{authService: as, denylist: denylist}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var dto domain.RegisterUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register user"})
		return
	}
	c.JSON(http.StatusCreated, user)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var dto domain.LoginUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, authResponse)
}

// POST /auth/logout (authenticated)
//
// JWTs cannot be forgotten server-side, so logout denylists the token's jti
// for its remaining lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	jti := c.GetString(middleware.TokenIDKey)
	expVal, _ := c.Get(middleware.TokenExpiryKey)
	expiry, _ := expVal.(time.Time)
	if jti == "" || h.denylist == nil {
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.denylist.Revoke(c.Request.Context(), jti, time.Until(expiry)); err != nil {
		log.Printf("revoking token %s: %v", jti, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log out"})
		return
	}
	c.Status(http.StatusNoContent)
}
