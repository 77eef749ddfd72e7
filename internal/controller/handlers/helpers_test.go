package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckLength(t *testing.T) {
	assert.NoError(t, checkLength("боль", 3, 10))
	assert.Error(t, checkLength("аб", 3, 10))
	assert.Error(t, checkLength(strings.Repeat("я", 11), 3, 10))
	// считаются символы, а не байты
	assert.NoError(t, checkLength(strings.Repeat("я", 10), 3, 10))
	assert.NoError(t, checkLength("", 0, 10))
}

func TestOptional(t *testing.T) {
	assert.Equal(t, "", optional(" - "))
	assert.Equal(t, "", optional(""))
	assert.Equal(t, "без осложнений", optional("  без осложнений "))
	assert.Equal(t, "--", optional("--"))
}
