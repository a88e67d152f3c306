package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"library-service/internal/auth"
	"library-service/internal/export"
	"library-service/internal/models"
	"library-service/internal/session"
	"library-service/internal/util"

	"github.com/gin-gonic/gin"
)

const sessionContextKey = "session"

// role levels used by route guards
var (
	roleLibrarian = models.RoleLibrarian
	roleAdmin     = models.RoleAdmin
)

// sessionMiddleware resolves the bearer token into a session and aborts
// with 401 when it is missing, unknown or expired.
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		sess, err := h.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// requireRole aborts with 403 unless the session user holds at least the
// given role. Runs after sessionMiddleware.
func (h *Handler) requireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil || !auth.HasPermission(sess.User, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Permission denied",
			})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.GetHeader("X-Session-Token")
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var ise *models.InsufficientStockError
	switch {
	case errors.Is(err, models.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &ise):
		c.JSON(http.StatusConflict, gin.H{
			"error":          err.Error(),
			"publication_id": ise.PublicationID,
			"requested":      ise.Requested,
			"available":      ise.Available,
		})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrIndexOutOfRange),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, export.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
