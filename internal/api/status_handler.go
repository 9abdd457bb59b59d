package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow/internal/repository"
	"taskflow/internal/service"
)

type createStatusRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
	Color       string `json:"color" binding:"omitempty,hexcolor6"`
	Order       *int   `json:"order" binding:"omitempty,min=1"`
	IsFinalized bool   `json:"is_finalized"`
}

type updateStatusRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Color       *string `json:"color" binding:"omitempty,hexcolor6"`
	Order       *int    `json:"order" binding:"omitempty,min=1"`
	IsFinalized *bool   `json:"is_finalized"`
}

type statusQuery struct {
	Name        string `form:"name"`
	Description string `form:"description"`
	IsFinalized *bool  `form:"is_finalized"`
}

func (h *Handler) listStatuses(c *gin.Context) {
	var q statusQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	h.writeStatuses(c, repository.StatusFilter{Name: q.Name, Description: q.Description, IsFinalized: q.IsFinalized})
}

func (h *Handler) allStatuses(c *gin.Context) {
	h.writeStatuses(c, repository.StatusFilter{})
}

func (h *Handler) writeStatuses(c *gin.Context, filter repository.StatusFilter) {
	statuses, err := h.svc.Statuses.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": statuses})
}

func (h *Handler) createStatus(c *gin.Context) {
	var req createStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	status, err := h.svc.Statuses.Create(c.Request.Context(), currentUser(c), service.StatusInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Order:       req.Order,
		IsFinalized: req.IsFinalized,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, status)
}

func (h *Handler) showStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	status, err := h.svc.Statuses.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	status, err := h.svc.Statuses.Update(c.Request.Context(), currentUser(c), id, service.StatusPatch{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Order:       req.Order,
		IsFinalized: req.IsFinalized,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) deleteStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Statuses.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status deleted successfully"})
}

func (h *Handler) deleteAllStatuses(c *gin.Context) {
	n, err := h.svc.Statuses.DeleteAll(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All statuses deleted successfully", "deleted": n})
}
