package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddlewareLevelsByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
		msg    string
	}{
		{http.StatusOK, zapcore.InfoLevel, "Request completed"},
		{http.StatusConflict, zapcore.WarnLevel, "Request rejected"},
		{http.StatusBadGateway, zapcore.ErrorLevel, "Request failed"},
	}

	for _, tt := range tests {
		core, logs := observer.New(zapcore.InfoLevel)
		logger := zap.New(core)

		handler := LoggingMiddleware(logger)(SessionMiddleware("", logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})))

		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set(SessionHeader, "browser-session-01")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		entries := logs.FilterMessage(tt.msg).All()
		if len(entries) != 1 {
			t.Fatalf("status %d: got %d %q entries", tt.status, len(entries), tt.msg)
		}
		if entries[0].Level != tt.level {
			t.Errorf("status %d: level = %v, want %v", tt.status, entries[0].Level, tt.level)
		}
		if got := entries[0].ContextMap()["session_id"]; got != "browser-session-01" {
			t.Errorf("status %d: session_id = %v", tt.status, got)
		}
	}
}
