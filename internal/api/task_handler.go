package api

import (
	"iter"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskflow/internal/repository"
	"taskflow/internal/service"
)

type createTaskRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description string  `json:"description"`
	StatusID    uint    `json:"status_id" binding:"required"`
	CategoryID  *uint   `json:"category_id"`
	DueDate     *string `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
}

type updateTaskRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=255"`
	Description   *string `json:"description"`
	StatusID      *uint   `json:"status_id"`
	CategoryID    *uint   `json:"category_id"`
	ClearCategory bool    `json:"clear_category"`
	DueDate       *string `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	ClearDueDate  bool    `json:"clear_due_date"`
	Observation   string  `json:"observation" binding:"max=500"`
}

type taskQuery struct {
	Search     string `form:"search"`
	StatusID   *uint  `form:"status_id"`
	CategoryID *uint  `form:"category_id"`
}

func (h *Handler) listTasks(c *gin.Context) {
	var q taskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	h.writeTasks(c, repository.TaskFilter{Search: q.Search, StatusID: q.StatusID, CategoryID: q.CategoryID})
}

func (h *Handler) allTasks(c *gin.Context) {
	h.writeTasks(c, repository.TaskFilter{})
}

func (h *Handler) writeTasks(c *gin.Context, filter repository.TaskFilter) {
	tasks, err := h.svc.Tasks.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

func (h *Handler) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	task, err := h.svc.Tasks.Create(c.Request.Context(), currentUser(c), service.TaskInput{
		Name:        req.Name,
		Description: req.Description,
		StatusID:    req.StatusID,
		CategoryID:  req.CategoryID,
		DueDate:     due,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) showTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	task, err := h.svc.Tasks.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) updateTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	task, err := h.svc.Tasks.Update(c.Request.Context(), currentUser(c), id, service.TaskPatch{
		Name:          req.Name,
		Description:   req.Description,
		StatusID:      req.StatusID,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		DueDate:       due,
		ClearDueDate:  req.ClearDueDate,
		Observation:   req.Observation,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Tasks.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func (h *Handler) deleteAllTasks(c *gin.Context) {
	n, err := h.svc.Tasks.DeleteAll(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All tasks deleted successfully", "deleted": n})
}

func (h *Handler) taskHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	history, err := h.svc.Tasks.History(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	writeHistory(c, history)
}

func writeHistory(c *gin.Context, history iter.Seq2[service.HistoryEntry, error]) {
	entries := []service.HistoryEntry{}
	for entry, err := range history {
		if err != nil {
			respondError(c, err)
			return
		}
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, *value)
	if err != nil {
		verr := &service.ValidationError{}
		verr.Add("due_date", "must be a date in YYYY-MM-DD format")
		return nil, verr
	}
	return &t, nil
}
