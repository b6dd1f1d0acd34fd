package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPrefersPrefixedKey(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	assert.Equal(t, "console", Get("LOG_FORMAT", "json"))

	t.Setenv("PHARMALINK_LOG_FORMAT", "json")
	assert.Equal(t, "json", Get("LOG_FORMAT", "console"))
}

func TestGetTreatsBlankAsUnset(t *testing.T) {
	t.Setenv("PHARMALINK_LOG_FORMAT", "   ")
	t.Setenv("LOG_FORMAT", "")
	assert.Equal(t, "json", Get("LOG_FORMAT", "json"))
}

func TestOneOfFallsBackOnUnknownValue(t *testing.T) {
	t.Setenv("LOG_FORMAT", "Console")
	assert.Equal(t, "console", OneOf("LOG_FORMAT", "json", "json", "console"))

	t.Setenv("LOG_FORMAT", "xml")
	assert.Equal(t, "json", OneOf("LOG_FORMAT", "json", "json", "console"))
}
