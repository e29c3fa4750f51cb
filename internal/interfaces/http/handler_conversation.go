package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/repository"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/usecases"
)

func (h *Handler) ListConversations(c *gin.Context) {
	filter := repository.ConversationFilter{
		Status:   c.Query("status"),
		Platform: c.Query("platform"),
	}
	if filter.Status != "" && !entities.ValidStatus(filter.Status) {
		respondError(c, http.StatusBadRequest, "Invalid status filter")
		return
	}
	if filter.Platform != "" && !entities.ValidPlatform(filter.Platform) {
		respondError(c, http.StatusBadRequest, "Invalid platform filter")
		return
	}
	if raw := c.Query("assigned_agent"); raw != "" {
		agentID, err := strconv.Atoi(raw)
		if err != nil || agentID <= 0 {
			respondError(c, http.StatusBadRequest, "Invalid assigned_agent filter")
			return
		}
		filter.AssignedAgent = agentID
	}

	conversations, err := h.conversations.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	respondOK(c, http.StatusOK, conversations)
}

func (h *Handler) GetConversation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	conv, err := h.conversations.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}
	if conv == nil {
		respondError(c, http.StatusNotFound, "Conversation not found")
		return
	}
	respondOK(c, http.StatusOK, conv)
}

func (h *Handler) UpdateConversationStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !entities.ValidStatus(req.Status) {
		respondError(c, http.StatusBadRequest, "Invalid status")
		return
	}

	conv, err := h.messageService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, usecases.ErrConversationNotFound) {
			respondError(c, http.StatusNotFound, "Conversation not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to update status")
		return
	}
	respondOK(c, http.StatusOK, conv)
}

func (h *Handler) AssignConversation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	var req struct {
		AgentID int `json:"agent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AgentID <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid agent ID")
		return
	}

	agent, err := h.userRepo.GetByID(req.AgentID)
	if err != nil || agent == nil || !agent.IsActive {
		respondError(c, http.StatusBadRequest, "Agent not found or inactive")
		return
	}

	conv, err := h.messageService.AssignAgent(c.Request.Context(), id, req.AgentID)
	if err != nil {
		if errors.Is(err, usecases.ErrConversationNotFound) {
			respondError(c, http.StatusNotFound, "Conversation not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to assign conversation")
		return
	}
	respondOK(c, http.StatusOK, conv)
}

func (h *Handler) PostAgentReply(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}
	content := SanitizeString(req.Content)
	if !ValidateLength(content, 1, MaxMessageLength) {
		respondError(c, http.StatusBadRequest, "Message content is empty or too long")
		return
	}

	conv, msg, err := h.messageService.AgentReply(c.Request.Context(), id, content)
	if err != nil {
		if errors.Is(err, usecases.ErrConversationNotFound) {
			respondError(c, http.StatusNotFound, "Conversation not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to send reply")
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"conversation": conv, "message": msg})
}
