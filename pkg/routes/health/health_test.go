package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsumer struct {
	healthy bool
}

func (f *fakeConsumer) Health() bool { return f.healthy }

func request(t *testing.T, handler echo.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func TestLive(t *testing.T) {
	c := NewChecker(nil, nil, "1.0.0")
	rec := request(t, c.Live, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady(t *testing.T) {
	c := NewChecker(nil, nil, "1.0.0")

	rec := request(t, c.Ready, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c.SetReady(true)
	rec = request(t, c.Ready, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	c.SetReady(false)
	rec = request(t, c.Ready, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth_NoDatabase(t *testing.T) {
	c := NewChecker(nil, nil, "1.0.0")
	rec := request(t, c.Health, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "1.0.0", status.Version)
	require.Contains(t, status.Checks, "database")
	assert.Equal(t, "unhealthy", status.Checks["database"].Status)
}

func TestHealth_ConsumerDown(t *testing.T) {
	c := NewChecker(nil, &fakeConsumer{healthy: false}, "1.0.0")
	rec := request(t, c.Health, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Contains(t, status.Checks, "kafka_consumer")
	assert.Equal(t, "unhealthy", status.Checks["kafka_consumer"].Status)
}
