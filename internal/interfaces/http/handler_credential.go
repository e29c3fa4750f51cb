package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type credentialRequest struct {
	Platform      string `json:"platform"`
	Label         string `json:"label"`
	AccessToken   string `json:"access_token"`
	ChannelSecret string `json:"channel_secret"`
	VerifyToken   string `json:"verify_token"`
	Active        *bool  `json:"active"`
}

func (h *Handler) ListCredentials(c *gin.Context) {
	creds, err := h.credentials.List(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to list credentials")
		return
	}
	redacted := make([]entities.Credential, len(creds))
	for i, cred := range creds {
		redacted[i] = cred.Redacted()
	}
	respondOK(c, http.StatusOK, redacted)
}

func (h *Handler) GetCredential(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid credential ID")
		return
	}

	cred, err := h.credentials.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch credential")
		return
	}
	if cred == nil {
		respondError(c, http.StatusNotFound, "Credential not found")
		return
	}
	respondOK(c, http.StatusOK, cred.Redacted())
}

func (h *Handler) CreateCredential(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}
	if !entities.ValidPlatform(req.Platform) {
		respondError(c, http.StatusBadRequest, "Unknown platform")
		return
	}
	if req.AccessToken == "" && req.Platform != entities.PlatformWeb {
		respondError(c, http.StatusBadRequest, "Access token is required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	cred := &entities.Credential{
		Platform:      req.Platform,
		Label:         SanitizeString(req.Label),
		AccessToken:   req.AccessToken,
		ChannelSecret: req.ChannelSecret,
		VerifyToken:   req.VerifyToken,
		Active:        active,
	}
	if err := h.credentials.Create(c.Request.Context(), cred); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create credential")
		return
	}
	respondOK(c, http.StatusCreated, cred.Redacted())
}

func (h *Handler) UpdateCredential(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid credential ID")
		return
	}

	existing, err := h.credentials.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch credential")
		return
	}
	if existing == nil {
		respondError(c, http.StatusNotFound, "Credential not found")
		return
	}

	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Label != "" {
		existing.Label = SanitizeString(req.Label)
	}
	// Secrets are only replaced when a new value is supplied, so admins can
	// toggle a credential without re-entering tokens.
	if req.AccessToken != "" {
		existing.AccessToken = req.AccessToken
	}
	if req.ChannelSecret != "" {
		existing.ChannelSecret = req.ChannelSecret
	}
	if req.VerifyToken != "" {
		existing.VerifyToken = req.VerifyToken
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}

	if err := h.credentials.Update(c.Request.Context(), existing); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update credential")
		return
	}
	respondOK(c, http.StatusOK, existing.Redacted())
}

func (h *Handler) DeleteCredential(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid credential ID")
		return
	}

	if err := h.credentials.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondError(c, http.StatusNotFound, "Credential not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to delete credential")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}
