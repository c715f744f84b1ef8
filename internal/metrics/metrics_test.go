package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStoreOp(t *testing.T) {
	m := New()

	m.ObserveStoreOp("update", time.Millisecond, 2*time.Millisecond, nil)
	m.ObserveStoreOp("update", 0, time.Millisecond, apperr.Forbidden("no"))
	m.ObserveStoreOp("view", 0, time.Millisecond, errors.New("disk gone"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("update", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("update", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("view", "error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "418")))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "taskgroups_http_requests_total"))
}
