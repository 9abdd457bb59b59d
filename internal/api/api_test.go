package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"taskflow/internal/config"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

type apiFixture struct {
	router     *gin.Engine
	accessLogs *repository.AccessLogRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	tx := repository.NewTransactor(db)
	users := repository.NewUserRepository(db)
	tokens := repository.NewTokenRepository(db)
	statuses := repository.NewStatusRepository(db)
	categories := repository.NewCategoryRepository(db)
	tasks := repository.NewTaskRepository(db)
	subtasks := repository.NewSubtaskRepository(db)
	activity := service.NewActivityService(repository.NewActivityRepository(db), nil)
	accessLogs := repository.NewAccessLogRepository(db)

	router := NewRouter(Services{
		Auth:       service.NewAuthService(tx, users, tokens, statuses, categories, time.Hour, nil),
		Users:      service.NewUserService(tx, users, tokens, nil),
		Statuses:   service.NewStatusService(statuses),
		Categories: service.NewCategoryService(categories),
		Tasks:      service.NewTaskService(tx, tasks, statuses, categories, activity, config.ActivityLogTransactional, nil),
		Subtasks:   service.NewSubtaskService(tx, tasks, subtasks, statuses, activity, config.ActivityLogTransactional, nil),
		AccessLogs: accessLogs,
	})
	return &apiFixture{router: router, accessLogs: accessLogs}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (f *apiFixture) register(t *testing.T, email string) (string, uint) {
	t.Helper()
	code, body := f.do(t, http.MethodPost, "/register", "", map[string]any{
		"name":     "Ana",
		"email":    email,
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, code, body)
	user := body["user"].(map[string]any)
	return body["token"].(string), uint(user["id"].(float64))
}

func (f *apiFixture) statusID(t *testing.T, token, name string) uint {
	t.Helper()
	code, body := f.do(t, http.MethodGet, "/statuses?name="+name, token, nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	return uint(data[0].(map[string]any)["id"].(float64))
}

func routePath(parts ...any) string {
	out := ""
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			out += "/" + v
		case uint:
			out += "/" + strconv.FormatUint(uint64(v), 10)
		}
	}
	return out
}

func TestTaskLifecycleProducesHistory(t *testing.T) {
	f := newAPIFixture(t)
	token, userID := f.register(t, "ana@example.com")
	onHold := f.statusID(t, token, "Hold")
	done := f.statusID(t, token, "Done")

	code, body := f.do(t, http.MethodPost, "/tasks", token, map[string]any{
		"name":      "Ship release",
		"status_id": onHold,
	})
	require.Equal(t, http.StatusCreated, code, body)
	taskID := uint(body["id"].(float64))

	code, body = f.do(t, http.MethodPut, routePath("tasks", taskID), token, map[string]any{
		"status_id":   done,
		"observation": "shipped",
	})
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, float64(done), body["status_id"])

	code, body = f.do(t, http.MethodGet, routePath("tasks", taskID, "history"), token, nil)
	require.Equal(t, http.StatusOK, code)
	entries := body["data"].([]any)
	require.Len(t, entries, 2)

	created := entries[0].(map[string]any)
	require.Equal(t, "create", created["action"])
	require.Equal(t, "N/A", created["previous_status"].(map[string]any)["name"])
	require.Equal(t, "none", created["previous_status"].(map[string]any)["state"])
	require.Equal(t, "On Hold", created["new_status"].(map[string]any)["name"])
	require.Equal(t, "Ana", created["user"].(map[string]any)["name"])
	require.Equal(t, float64(userID), created["user"].(map[string]any)["id"])

	updated := entries[1].(map[string]any)
	require.Equal(t, "update", updated["action"])
	require.Equal(t, "On Hold", updated["previous_status"].(map[string]any)["name"])
	require.Equal(t, "Done", updated["new_status"].(map[string]any)["name"])
	require.Equal(t, "shipped", updated["observation"])

	code, body = f.do(t, http.MethodGet, routePath("tasks", taskID), token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["history"].([]any), 2)

	code, _ = f.do(t, http.MethodDelete, routePath("tasks", taskID), token, nil)
	require.Equal(t, http.StatusOK, code)
	code, body = f.do(t, http.MethodGet, routePath("tasks", taskID, "history"), token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["data"].([]any), 2)
}

func TestSubtaskRoutes(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.register(t, "sub@example.com")
	progress := f.statusID(t, token, "Progress")

	code, body := f.do(t, http.MethodPost, "/tasks", token, map[string]any{"name": "Parent", "status_id": progress})
	require.Equal(t, http.StatusCreated, code, body)
	taskID := uint(body["id"].(float64))

	code, body = f.do(t, http.MethodPost, routePath("tasks", taskID, "subtasks"), token, map[string]any{"title": "Child"})
	require.Equal(t, http.StatusCreated, code, body)
	subtaskID := uint(body["id"].(float64))

	code, body = f.do(t, http.MethodGet, routePath("tasks", taskID, "subtasks", subtaskID, "history"), token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, body["data"].([]any))

	code, body = f.do(t, http.MethodPut, routePath("tasks", taskID, "subtasks", subtaskID), token, map[string]any{"status_id": progress})
	require.Equal(t, http.StatusOK, code, body)

	code, body = f.do(t, http.MethodGet, routePath("tasks", taskID, "subtasks", subtaskID, "history"), token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["data"].([]any), 1)

	code, _ = f.do(t, http.MethodGet, routePath("tasks", taskID, "subtasks", uint(9999)), token, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestErrorResponses(t *testing.T) {
	f := newAPIFixture(t)

	code, _ := f.do(t, http.MethodGet, "/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = f.do(t, http.MethodGet, "/tasks", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	token, _ := f.register(t, "errors@example.com")

	code, body := f.do(t, http.MethodPost, "/statuses", token, map[string]any{"color": "red", "order": 0})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	fields := body["errors"].(map[string]any)
	require.Contains(t, fields, "name")
	require.Contains(t, fields, "color")

	code, body = f.do(t, http.MethodPost, "/statuses", token, map[string]any{"name": "Done"})
	require.Equal(t, http.StatusConflict, code)
	require.Contains(t, body["errors"].(map[string]any), "name")

	code, body = f.do(t, http.MethodPost, "/tasks", token, map[string]any{"name": "Bad", "status_id": 424242})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Contains(t, body["errors"].(map[string]any), "status_id")

	done := f.statusID(t, token, "Done")
	code, body = f.do(t, http.MethodPost, "/tasks", token, map[string]any{"name": "Late", "status_id": done, "due_date": "2000-01-01"})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Contains(t, body["errors"].(map[string]any), "due_date")

	code, _ = f.do(t, http.MethodGet, "/tasks/abc", token, nil)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodGet, "/tasks/77", token, nil)
	require.Equal(t, http.StatusNotFound, code)

	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOtherUsersAreInvisible(t *testing.T) {
	f := newAPIFixture(t)
	ownerToken, ownerID := f.register(t, "owner@example.com")
	otherToken, _ := f.register(t, "other@example.com")
	hold := f.statusID(t, ownerToken, "Hold")

	code, body := f.do(t, http.MethodPost, "/tasks", ownerToken, map[string]any{"name": "Private", "status_id": hold})
	require.Equal(t, http.StatusCreated, code, body)
	taskID := uint(body["id"].(float64))

	code, _ = f.do(t, http.MethodGet, routePath("tasks", taskID), otherToken, nil)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodGet, routePath("tasks", taskID, "history"), otherToken, nil)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodGet, routePath("users", ownerID), otherToken, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.register(t, "bye@example.com")

	code, _ := f.do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = f.do(t, http.MethodGet, "/statuses", token, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, body := f.do(t, http.MethodPost, "/login", "", map[string]any{"email": "BYE@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, code, body)
	require.NotEmpty(t, body["token"])
}

func TestAuditRecordsRequests(t *testing.T) {
	f := newAPIFixture(t)
	token, userID := f.register(t, "audit@example.com")

	req := httptest.NewRequest(http.MethodGet, "/statuses/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	code, _ := f.do(t, http.MethodGet, "/statuses/31337", token, nil)
	require.Equal(t, http.StatusNotFound, code)

	logs, err := f.accessLogs.ListByUser(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "Viewed status 31337", logs[0].Details)
	require.Equal(t, http.StatusNotFound, logs[0].StatusCode)
	require.Equal(t, "/statuses/:id", logs[0].Endpoint)
	require.Equal(t, "Listed all statuses", logs[1].Details)
	require.Equal(t, "req-123", logs[1].RequestID)
}
