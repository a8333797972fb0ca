package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terraform-archviz/internal/engine"
	"terraform-archviz/pkg/arch"
)

const azureState = `{
  "version": 4,
  "terraform_version": "1.5.7",
  "resources": [
    {"mode": "managed", "type": "azurerm_resource_group", "name": "main",
     "instances": [{"attributes": {"name": "prod-rg"}}]},
    {"mode": "managed", "type": "azurerm_virtual_machine", "name": "web",
     "instances": [{"attributes": {"resource_group_name": "prod-rg"},
                    "dependencies": ["azurerm_resource_group.main"]}]}
  ]
}`

func testServer() *Server {
	return NewServer(engine.New(), nil, nil)
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	testServer().Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleParse(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader(azureState))
	rec := httptest.NewRecorder()
	testServer().Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var a arch.Architecture
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, arch.ProviderAzure, a.Provider)
	assert.Len(t, a.Resources, 2)
	require.NotNil(t, a.Groups)
}

func TestHandleParseErrors(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader(""))
		rec := httptest.NewRecorder()
		testServer().Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed document", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader(`{"version": 4, "resources": [{"mode": "managed"}]}`))
		rec := httptest.NewRecorder()
		testServer().Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported schema version", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader(`{"version": 2}`))
		rec := httptest.NewRecorder()
		testServer().Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandleParseBodyTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRequestSize = 64
	srv := NewServer(engine.New(), nil, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader(strings.Repeat("x", 65)))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds 64 bytes")
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("ARCHVIZ_PORT", "9999")
	t.Setenv("ARCHVIZ_MAX_REQUEST_SIZE", "1024")

	cfg := DefaultConfig()
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, int64(1024), cfg.MaxRequestSize)
}

func TestHandleSummary(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/summary", strings.NewReader(azureState))
	rec := httptest.NewRecorder()
	testServer().Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "azure", got["provider"])
	assert.Equal(t, float64(2), got["total_resources"])
}

func TestHandleSnapshotsWithoutStore(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshots", nil)
	rec := httptest.NewRecorder()
	testServer().Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
