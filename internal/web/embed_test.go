package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.GET("/api/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	require.NoError(t, RegisterStaticRoutes(e))
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHasEmbeddedFiles(t *testing.T) {
	assert.True(t, HasEmbeddedFiles())
}

func TestStaticRoutes(t *testing.T) {
	e := newServer(t)

	rec := get(e, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Renewable Energy Dashboard</title>")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = get(e, "/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "javascript")

	rec = get(e, "/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	// unknown client paths get the page
	rec = get(e, "/solar")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app.js")

	rec = get(e, "/api/health")
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(e, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
