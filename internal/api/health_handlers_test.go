package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var body HealthResponse
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, "healthy", body.Store.Status)
	assert.Equal(t, "healthy", body.Search.Status)
}

func TestHealth_SearchDisabled(t *testing.T) {
	ts := newTestServer(t, withoutSearch)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var body HealthResponse
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "disabled", body.Search.Status)
}

func TestHealth_StoreDown(t *testing.T) {
	ts := newTestServer(t)
	_ = ts.store.Close()

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	var body HealthResponse
	decode(t, resp, &body)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy", body.Store.Status)
}
