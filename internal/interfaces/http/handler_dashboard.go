package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetDashboardStats(c *gin.Context) {
	byStatus, err := h.conversations.CountByStatus(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	byPlatform, err := h.conversations.CountByPlatform(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	received, aiReplies, agentReplies, err := h.usageRepo.Today()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	perPlatform, err := h.usageRepo.TodayByPlatform()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"conversations_by_status":   byStatus,
		"conversations_by_platform": byPlatform,
		"today": gin.H{
			"received":      received,
			"ai_replies":    aiReplies,
			"agent_replies": agentReplies,
			"per_platform":  perPlatform,
		},
	})
}

func (h *Handler) GetAllUsers(c *gin.Context) {
	users, err := h.userRepo.GetAll()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to list users")
		return
	}
	respondOK(c, http.StatusOK, users)
}

func (h *Handler) UpdateUserStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		respondError(c, http.StatusBadRequest, "is_active is required")
		return
	}

	if err := h.userRepo.SetActive(id, *req.IsActive); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update user")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "is_active": *req.IsActive})
}
