package httpserver

import (
	"github.com/gin-gonic/gin"
	authsvc "luminix/internal/service/auth"
	profilesvc "luminix/internal/service/profile"
)

type sendCodeRequest struct {
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type verifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type createProfileRequest struct {
	UserID      string `json:"userId" binding:"required"`
	Email       string `json:"email" binding:"required"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

type oauthCallbackRequest struct {
	UserID      string `json:"userId" binding:"required"`
	Email       string `json:"email" binding:"required"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

func (h *handlers) sendCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}
	err := h.deps.Auth.SendCode(c.Request.Context(), authsvc.SendCodeInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{})
}

func (h *handlers) verifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and code are required")
		return
	}
	customer, err := h.deps.Auth.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{"customer": customer})
}

func (h *handlers) createProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId and email are required")
		return
	}
	_, err := h.deps.Profiles.CreateProfile(c.Request.Context(), profilesvc.CreateInput{
		IdentityID:  req.UserID,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{})
}

func (h *handlers) oauthCallback(c *gin.Context) {
	var req oauthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId and email are required")
		return
	}
	res, err := h.deps.Profiles.EnsureProfile(c.Request.Context(), profilesvc.EnsureInput{
		IdentityID:  req.UserID,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{"isNewUser": res.IsNewUser, "needsPhone": res.NeedsPhone})
}
