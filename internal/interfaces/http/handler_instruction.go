package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type instructionRequest struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Platforms []string `json:"platforms"`
	Category  string   `json:"category"`
	Priority  int      `json:"priority"`
	Active    *bool    `json:"active"`
}

func (req *instructionRequest) validate() string {
	req.Title = SanitizeString(req.Title)
	req.Category = SanitizeString(req.Category)
	if !ValidateLength(req.Title, 1, MaxTitleLength) {
		return "Title is required (max 256 chars)"
	}
	if !ValidateLength(req.Content, 1, MaxContentLength) {
		return "Content is required (max 50000 chars)"
	}
	if req.Category != "" && !ValidateLength(req.Category, 1, MaxLabelLength) {
		return "Category too long"
	}
	for _, p := range req.Platforms {
		if !entities.ValidPlatform(p) {
			return "Unknown platform: " + p
		}
	}
	return ""
}

func (h *Handler) ListInstructions(c *gin.Context) {
	platformFilter := c.Query("platform")
	if platformFilter != "" && !entities.ValidPlatform(platformFilter) {
		respondError(c, http.StatusBadRequest, "Invalid platform filter")
		return
	}

	instructions, err := h.instructions.List(c.Request.Context(), platformFilter, c.Query("category"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to list instructions")
		return
	}
	respondOK(c, http.StatusOK, instructions)
}

func (h *Handler) GetInstruction(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid instruction ID")
		return
	}

	ins, err := h.instructions.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch instruction")
		return
	}
	if ins == nil {
		respondError(c, http.StatusNotFound, "Instruction not found")
		return
	}
	respondOK(c, http.StatusOK, ins)
}

func (h *Handler) CreateInstruction(c *gin.Context) {
	var req instructionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	ins := &entities.Instruction{
		Title:     req.Title,
		Content:   req.Content,
		Platforms: req.Platforms,
		Category:  req.Category,
		Priority:  req.Priority,
		Active:    active,
	}
	if err := h.instructions.Create(c.Request.Context(), ins); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create instruction")
		return
	}
	respondOK(c, http.StatusCreated, ins)
}

func (h *Handler) UpdateInstruction(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid instruction ID")
		return
	}

	existing, err := h.instructions.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch instruction")
		return
	}
	if existing == nil {
		respondError(c, http.StatusNotFound, "Instruction not found")
		return
	}

	var req instructionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	existing.Title = req.Title
	existing.Content = req.Content
	existing.Platforms = req.Platforms
	existing.Category = req.Category
	existing.Priority = req.Priority
	if req.Active != nil {
		existing.Active = *req.Active
	}
	if err := h.instructions.Update(c.Request.Context(), existing); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update instruction")
		return
	}
	respondOK(c, http.StatusOK, existing)
}

func (h *Handler) DeleteInstruction(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid instruction ID")
		return
	}

	if err := h.instructions.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondError(c, http.StatusNotFound, "Instruction not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to delete instruction")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}
