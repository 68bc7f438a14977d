package logger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"":        zap.InfoLevel,
		"info":    zap.InfoLevel,
		"debug":   zap.DebugLevel,
		"DEBUG":   zap.DebugLevel,
		"warn":    zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"fatal":   zap.FatalLevel,
		"verbose": zap.InfoLevel,
	} {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestLevelHandler(t *testing.T) {
	prev := logger.AtomicLevel.Level()
	defer SetLevel(prev)

	SetLevel(zap.WarnLevel)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log/level", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "warn")

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/log/level", strings.NewReader(`{"level":"error"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, zap.ErrorLevel, logger.AtomicLevel.Level())
}
