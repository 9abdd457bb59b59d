package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskflow/internal/repository"
	"taskflow/internal/service"
)

// Services are the dependencies of the HTTP layer. AccessLogs may be nil to
// turn auditing off.
type Services struct {
	Auth       *service.AuthService
	Users      *service.UserService
	Statuses   *service.StatusService
	Categories *service.CategoryService
	Tasks      *service.TaskService
	Subtasks   *service.SubtaskService
	AccessLogs *repository.AccessLogRepository
}

// Handler serves the JSON API.
type Handler struct {
	svc Services
}

type route struct {
	method      string
	path        string
	public      bool
	description string
	handle      gin.HandlerFunc
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc Services) *gin.Engine {
	registerValidation()

	h := &Handler{svc: svc}
	routes := h.routes()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestID())
	if svc.AccessLogs != nil {
		descriptions := make(map[string]string, len(routes))
		for _, rt := range routes {
			descriptions[rt.method+" "+rt.path] = rt.description
		}
		r.Use(audit(svc.AccessLogs, descriptions))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authed := requireAuth(svc.Auth)
	for _, rt := range routes {
		if rt.public {
			r.Handle(rt.method, rt.path, rt.handle)
			continue
		}
		r.Handle(rt.method, rt.path, authed, rt.handle)
	}
	return r
}

func (h *Handler) routes() []route {
	return []route{
		{http.MethodPost, "/register", true, "Registered a new account", h.register},
		{http.MethodPost, "/login", true, "Logged in", h.login},
		{http.MethodPost, "/logout", false, "Logged out", h.logout},

		{http.MethodGet, "/users/:id", false, "Viewed user {id}", h.showUser},
		{http.MethodPut, "/users/:id", false, "Updated user {id}", h.updateUser},
		{http.MethodDelete, "/users/:id", false, "Deleted user {id}", h.deleteUser},

		{http.MethodGet, "/statuses", false, "Listed statuses", h.listStatuses},
		{http.MethodGet, "/statuses/all", false, "Listed all statuses", h.allStatuses},
		{http.MethodPost, "/statuses", false, "Created a status", h.createStatus},
		{http.MethodGet, "/statuses/:id", false, "Viewed status {id}", h.showStatus},
		{http.MethodPut, "/statuses/:id", false, "Updated status {id}", h.updateStatus},
		{http.MethodDelete, "/statuses/:id", false, "Deleted status {id}", h.deleteStatus},
		{http.MethodDelete, "/statuses", false, "Deleted all statuses", h.deleteAllStatuses},

		{http.MethodGet, "/categories", false, "Listed categories", h.listCategories},
		{http.MethodGet, "/categories/all", false, "Listed all categories", h.allCategories},
		{http.MethodPost, "/categories", false, "Created a category", h.createCategory},
		{http.MethodGet, "/categories/:id", false, "Viewed category {id}", h.showCategory},
		{http.MethodPut, "/categories/:id", false, "Updated category {id}", h.updateCategory},
		{http.MethodDelete, "/categories/:id", false, "Deleted category {id}", h.deleteCategory},
		{http.MethodDelete, "/categories", false, "Deleted all categories", h.deleteAllCategories},

		{http.MethodGet, "/tasks", false, "Listed tasks", h.listTasks},
		{http.MethodGet, "/tasks/all", false, "Listed all tasks", h.allTasks},
		{http.MethodPost, "/tasks", false, "Created a task", h.createTask},
		{http.MethodGet, "/tasks/:id", false, "Viewed task {id}", h.showTask},
		{http.MethodPut, "/tasks/:id", false, "Updated task {id}", h.updateTask},
		{http.MethodDelete, "/tasks/:id", false, "Deleted task {id}", h.deleteTask},
		{http.MethodDelete, "/tasks", false, "Deleted all tasks", h.deleteAllTasks},
		{http.MethodGet, "/tasks/:id/history", false, "Viewed history of task {id}", h.taskHistory},

		{http.MethodGet, "/tasks/:id/subtasks", false, "Listed subtasks of task {id}", h.listSubtasks},
		{http.MethodGet, "/tasks/:id/subtasks/all", false, "Listed all subtasks of task {id}", h.allSubtasks},
		{http.MethodPost, "/tasks/:id/subtasks", false, "Created a subtask in task {id}", h.createSubtask},
		{http.MethodGet, "/tasks/:id/subtasks/:subtaskId", false, "Viewed subtask {subtaskId}", h.showSubtask},
		{http.MethodPut, "/tasks/:id/subtasks/:subtaskId", false, "Updated subtask {subtaskId}", h.updateSubtask},
		{http.MethodDelete, "/tasks/:id/subtasks/:subtaskId", false, "Deleted subtask {subtaskId}", h.deleteSubtask},
		{http.MethodDelete, "/tasks/:id/subtasks", false, "Deleted all subtasks of task {id}", h.deleteAllSubtasks},
		{http.MethodGet, "/tasks/:id/subtasks/:subtaskId/history", false, "Viewed history of subtask {subtaskId}", h.subtaskHistory},
	}
}

// paramID reads a numeric path parameter. Malformed ids are treated as
// missing resources.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
		return 0, false
	}
	return uint(id), true
}
