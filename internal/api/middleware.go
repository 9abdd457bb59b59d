package api

import (
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

const (
	userKey      = "taskflow.user"
	requestIDKey = "taskflow.request_id"
)

// requireAuth resolves the bearer token to a user or aborts with 401.
func requireAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !isUnauthorized(err) {
				log.Printf("[warn] authenticate: %v", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	return c.MustGet(userKey).(*model.User)
}

// requestID tags every request with an id echoed in X-Request-ID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// audit persists one access record per request. Descriptions come from the
// route table keyed by "METHOD pattern"; unmatched routes are recorded
// without one.
func audit(repo *repository.AccessLogRepository, descriptions map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := model.AccessLog{
			RequestID:  c.GetString(requestIDKey),
			Method:     c.Request.Method,
			Endpoint:   c.FullPath(),
			Path:       c.Request.URL.Path,
			IPAddress:  c.ClientIP(),
			UserAgent:  truncate(c.Request.UserAgent(), 255),
			Details:    describe(c, descriptions[c.Request.Method+" "+c.FullPath()]),
			StatusCode: c.Writer.Status(),
			Metadata: datatypes.JSONMap{
				"latency_ms": time.Since(started).Milliseconds(),
				"query":      c.Request.URL.RawQuery,
			},
			ActionDate: started,
		}
		if v, ok := c.Get(userKey); ok {
			if user, ok := v.(*model.User); ok {
				id := user.ID
				entry.UserID = &id
			}
		}
		if err := repo.Create(c.Request.Context(), &entry); err != nil {
			log.Printf("[warn] write access log: %v", err)
		}
	}
}

// describe fills {param} placeholders of template from the route params.
func describe(c *gin.Context, template string) string {
	if template == "" {
		return ""
	}
	out := template
	for _, p := range c.Params {
		out = strings.ReplaceAll(out, "{"+p.Key+"}", p.Value)
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
