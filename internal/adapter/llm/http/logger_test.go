package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactAPIKey(t *testing.T) {
	logger := NewDefaultLogger(LogLevelInfo, LogFormatHuman, true)

	assert.Equal(t, "[REDACTED-3456]", logger.RedactAPIKey("sk-123456"))
	assert.Equal(t, "[REDACTED]", logger.RedactAPIKey("abc"), "short keys leave nothing safe to show")
	assert.Equal(t, "[REDACTED]", logger.RedactAPIKey(""))
}

func TestRedactAPIKey_Disabled(t *testing.T) {
	logger := NewDefaultLogger(LogLevelInfo, LogFormatHuman, false)

	assert.Equal(t, "sk-123456", logger.RedactAPIKey("sk-123456"))

	logger.SetRedaction(true)
	assert.Equal(t, "[REDACTED-3456]", logger.RedactAPIKey("sk-123456"))
}
