package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow/internal/service"
)

type createSubtaskRequest struct {
	Title       string `json:"title" binding:"required,max=150"`
	Description string `json:"description"`
	StatusID    *uint  `json:"status_id"`
}

type updateSubtaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=150"`
	Description *string `json:"description"`
	StatusID    *uint   `json:"status_id"`
	Observation string  `json:"observation" binding:"max=500"`
}

func (h *Handler) listSubtasks(c *gin.Context) {
	h.writeSubtasks(c, c.Query("search"))
}

func (h *Handler) allSubtasks(c *gin.Context) {
	h.writeSubtasks(c, "")
}

func (h *Handler) writeSubtasks(c *gin.Context, search string) {
	taskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	subtasks, err := h.svc.Subtasks.List(c.Request.Context(), currentUser(c), taskID, search)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subtasks})
}

func (h *Handler) createSubtask(c *gin.Context) {
	taskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req createSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	subtask, err := h.svc.Subtasks.Create(c.Request.Context(), currentUser(c), taskID, service.SubtaskInput{
		Title:       req.Title,
		Description: req.Description,
		StatusID:    req.StatusID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subtask)
}

func (h *Handler) showSubtask(c *gin.Context) {
	taskID, id, ok := subtaskParams(c)
	if !ok {
		return
	}
	subtask, err := h.svc.Subtasks.Get(c.Request.Context(), currentUser(c), taskID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subtask)
}

func (h *Handler) updateSubtask(c *gin.Context) {
	taskID, id, ok := subtaskParams(c)
	if !ok {
		return
	}
	var req updateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	subtask, err := h.svc.Subtasks.Update(c.Request.Context(), currentUser(c), taskID, id, service.SubtaskPatch{
		Title:       req.Title,
		Description: req.Description,
		StatusID:    req.StatusID,
		Observation: req.Observation,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subtask)
}

func (h *Handler) deleteSubtask(c *gin.Context) {
	taskID, id, ok := subtaskParams(c)
	if !ok {
		return
	}
	if err := h.svc.Subtasks.Delete(c.Request.Context(), currentUser(c), taskID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subtask deleted successfully"})
}

func (h *Handler) deleteAllSubtasks(c *gin.Context) {
	taskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.Subtasks.DeleteAll(c.Request.Context(), currentUser(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All subtasks deleted successfully", "deleted": n})
}

func (h *Handler) subtaskHistory(c *gin.Context) {
	taskID, id, ok := subtaskParams(c)
	if !ok {
		return
	}
	history, err := h.svc.Subtasks.History(c.Request.Context(), currentUser(c), taskID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	writeHistory(c, history)
}

func subtaskParams(c *gin.Context) (uint, uint, bool) {
	taskID, ok := paramID(c, "id")
	if !ok {
		return 0, 0, false
	}
	id, ok := paramID(c, "subtaskId")
	return taskID, id, ok
}
