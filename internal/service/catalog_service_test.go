package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNames(t *testing.T) {
	got := normalizeNames([]string{" Isaac Asimov ", "", "Isaac Asimov", "  ", "Stanisław Lem"})
	assert.Equal(t, []string{"Isaac Asimov", "Stanisław Lem"}, got)

	assert.Empty(t, normalizeNames(nil))
	assert.Empty(t, normalizeNames([]string{"", "   "}))
}
