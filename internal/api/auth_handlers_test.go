package api

import (
	"testing"

	"library-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestApplyProfileUpdate(t *testing.T) {
	original := models.User{
		ID:        7,
		Email:     "reader@library.example",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Address:   "1 Old St",
		Role:      models.RoleUser,
	}

	updated := applyProfileUpdate(original, &updateProfileRequest{
		LastName: "Byron",
		Phone:    "+44 20 7946 0000",
	})

	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Byron", updated.LastName)
	assert.Equal(t, "1 Old St", updated.Address)
	assert.Equal(t, "+44 20 7946 0000", updated.Phone)
	assert.Equal(t, original.Email, updated.Email)

	// The input stays untouched until the caller commits the copy.
	assert.Equal(t, "Lovelace", original.LastName)
	assert.Empty(t, original.Phone)
}
