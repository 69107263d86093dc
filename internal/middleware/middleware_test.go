package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/bryanwahyu/research-camera/internal/application/analysis"
	"github.com/bryanwahyu/research-camera/internal/logger"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestValidateImage(t *testing.T) {
	mime, err := ValidateImage("leaf.png", tinyPNG(t), 10<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = ValidateImage("notes.txt", []byte("hello world"), 10<<20)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = ValidateImage("big.png", tinyPNG(t), 10)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.True(t, IsUploadError(err))

	_, err = ValidateImage("empty.png", nil, 10)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeString("../../etc/passwd"))
	assert.Equal(t, "a.png", SanitizeString(" a.png\x00\r\n"))
	assert.Equal(t, "", SanitizeString("   "))
}

func TestMetrics_CountsRequestsAndAnalyses(t *testing.T) {
	m := NewMetrics()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	m.RecordAnalysis(appanalysis.OutcomeOK, 40*time.Millisecond)
	m.RecordAnalysis(appanalysis.OutcomeOK, 60*time.Millisecond)
	m.RecordAnalysis(appanalysis.OutcomeQuota, 0)
	m.RecordAnalysis(appanalysis.OutcomeFailed, 0)

	rec := httptest.NewRecorder()
	m.Handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 2, got["requests_total"])
	assert.EqualValues(t, 1, got["requests_success"])
	assert.EqualValues(t, 1, got["requests_failed"])
	assert.EqualValues(t, 4, got["analyses_total"])
	assert.EqualValues(t, 1, got["quota_hits"])
	assert.EqualValues(t, 1, got["analyses_failed"])
	assert.InDelta(t, 50.0, got["analysis_avg_ms"], 0.01)
}

func TestReadinessHandler(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	bad := CheckFunc(func(context.Context) error { return errors.New("no key") })

	rec := httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"ai": ok})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"ai": ok, "key": bad})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var hs HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hs))
	assert.Equal(t, "unready", hs.Status)
	assert.Equal(t, "no key", hs.Checks["key"].Message)
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestLogging_WritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "api", "debug")

	var fromCtx bool
	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromRequest(r).Info().Msg("inside")
		fromCtx = true
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/analyze", nil))

	assert.True(t, fromCtx)
	assert.Contains(t, buf.String(), `"message":"inside"`)
	assert.Contains(t, buf.String(), `"path":"/analyze"`)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
