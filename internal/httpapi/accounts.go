package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"faceattend/internal/apperr"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	if req.Role == "" {
		req.Role = "student"
	}
	acct, err := h.Users.Create(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		writeErr(c, err)
		return
	}
	tokens, err := h.Signer.Issue(acct.Email, acct.Role)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": acct, "tokens": tokens})
}

func (h *Handler) signin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	acct, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// Bad credentials respond 401 regardless of which field was
		// wrong.
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid email or password"})
		return
	}
	tokens, err := h.Signer.Issue(acct.Email, acct.Role)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": acct, "tokens": tokens})
}
