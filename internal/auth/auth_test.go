package auth

import (
	"errors"
	"testing"

	"library-service/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	user := &models.User{Role: models.RoleUser}
	librarian := &models.User{Role: models.RoleLibrarian}
	admin := &models.User{Role: models.RoleAdmin}

	assert.True(t, HasPermission(user, models.RoleUser))
	assert.False(t, HasPermission(user, models.RoleLibrarian))
	assert.False(t, HasPermission(user, models.RoleAdmin))

	assert.True(t, HasPermission(librarian, models.RoleUser))
	assert.True(t, HasPermission(librarian, models.RoleLibrarian))
	assert.False(t, HasPermission(librarian, models.RoleAdmin))

	assert.True(t, HasPermission(admin, models.RoleUser))
	assert.True(t, HasPermission(admin, models.RoleLibrarian))
	assert.True(t, HasPermission(admin, models.RoleAdmin))

	assert.False(t, HasPermission(nil, models.RoleUser))
	assert.False(t, HasPermission(&models.User{Role: "intern"}, models.RoleUser))
}

func TestRoleRanksAreOrdered(t *testing.T) {
	assert.Less(t, models.RoleUser.Rank(), models.RoleLibrarian.Rank())
	assert.Less(t, models.RoleLibrarian.Rank(), models.RoleAdmin.Rank())
	assert.Zero(t, models.Role("unknown").Rank())
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("reader@library.example"))
	assert.True(t, ValidEmail("first.last+tag@sub.domain.org"))

	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("no-at-sign"))
	assert.False(t, ValidEmail("user@"))
	assert.False(t, ValidEmail("user@host"))
}

func TestValidPassword(t *testing.T) {
	assert.True(t, ValidPassword("Secret123"))

	assert.False(t, ValidPassword("Sh0rt"))       // too short
	assert.False(t, ValidPassword("alllower1"))   // no uppercase
	assert.False(t, ValidPassword("NoDigitsHere")) // no digit
}

func TestIsUniqueViolation(t *testing.T) {
	raw := &pq.Error{Code: "23505", Constraint: "users_email_key"}
	assert.True(t, isUniqueViolation(raw))
	assert.True(t, isUniqueViolation(models.WrapPersistence("CreateUser", raw)))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain error")))
	assert.False(t, isUniqueViolation(nil))
}
