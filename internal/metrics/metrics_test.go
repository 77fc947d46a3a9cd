package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareIncrementsCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitMetrics()

	r := gin.New()
	r.Use(Middleware())
	r.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/test", "200"))

	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/test", "200"))
	assert.Equal(t, before+1, after)
}

func TestRegisterExposesMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitMetrics()

	r := gin.New()
	Register(r, "/metrics")

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "homelist_records")
}

func TestObserveRecordOp(t *testing.T) {
	okBefore := testutil.ToFloat64(RecordOperations.WithLabelValues("create", "ok"))
	errBefore := testutil.ToFloat64(RecordOperations.WithLabelValues("create", "error"))

	ObserveRecordOp("create", nil)
	ObserveRecordOp("create", errors.New("disk full"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(RecordOperations.WithLabelValues("create", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(RecordOperations.WithLabelValues("create", "error")))
}
