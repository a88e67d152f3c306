package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"library-service/internal/auth"
	"library-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", models.ErrUnauthenticated, http.StatusUnauthorized},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"permission denied", models.ErrPermissionDenied, http.StatusForbidden},
		{"not found", models.ErrNotFound, http.StatusNotFound},
		{"insufficient stock", &models.InsufficientStockError{PublicationID: 1, Requested: 5, Available: 2}, http.StatusConflict},
		{"email taken", auth.ErrEmailTaken, http.StatusConflict},
		{"invalid quantity", models.ErrInvalidQuantity, http.StatusBadRequest},
		{"empty cart", models.ErrEmptyCart, http.StatusBadRequest},
		{"index out of range", models.ErrIndexOutOfRange, http.StatusBadRequest},
		{"weak password", auth.ErrWeakPassword, http.StatusBadRequest},
		{"persistence", &models.PersistenceError{Op: "test", Err: errors.New("boom")}, http.StatusInternalServerError},
		{"unknown", errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tc.err)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestWriteErrorWrappedStockError(t *testing.T) {
	// a wrapped stock error must still map to 409
	err := &models.InsufficientStockError{PublicationID: 9, Title: "Dune", Requested: 3, Available: 1}
	wrapped := models.WrapPersistence("checkout", err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, wrapped)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBearerToken(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "Bearer abc-123")
	assert.Equal(t, "abc-123", bearerToken(c))

	c.Request.Header.Del("Authorization")
	c.Request.Header.Set("X-Session-Token", "xyz-789")
	assert.Equal(t, "xyz-789", bearerToken(c))

	c.Request.Header.Del("X-Session-Token")
	assert.Equal(t, "", bearerToken(c))
}
