// server/internal/api/handlers/auth_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sistema-bup-api-server/internal/api/middleware"
	"sistema-bup-api-server/internal/auth"
)

type AuthHandler struct {
	Auth *auth.Service
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	session, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	session, err := h.Auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// SignOut revokes the bearer token of the request. Runs behind Authenticate.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), c.GetString(middleware.TokenKey)); err != nil {
		respondAuthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":    c.GetString(middleware.UserIDKey),
		"email": c.GetString(middleware.EmailKey),
	})
}
