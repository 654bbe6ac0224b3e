package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seattleguide/seattleguide/internal/config"
	"github.com/seattleguide/seattleguide/internal/models"
	"github.com/seattleguide/seattleguide/internal/server"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	cfg.Model.Provider = config.ProviderAnthropic
	cfg.Model.AnthropicAPIKey = "test-key"
	cfg.Maps.APIKey = "maps-key"
	cfg.Corpus.Backend = config.CorpusBackendRemote
	cfg.Corpus.APIKey = "corpus-key"
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"client-key"}
	return cfg
}

func TestRoutes(t *testing.T) {
	srv, err := server.New(testConfig(t))
	require.NoError(t, err)
	h := srv.Handler()

	t.Run("health is public", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("chat requires a key", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"messages":[]}`))
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("chat validates before calling the model", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"messages":[]}`))
		req.Header.Set("X-API-Key", "client-key")
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "messages cannot be empty")
	})

	t.Run("tools lists every tool", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
		req.Header.Set("X-API-Key", "client-key")
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp models.ToolsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		var names []string
		for _, tool := range resp.Tools {
			names = append(names, tool.Name)
		}
		assert.Equal(t, []string{"geocode_address", "get_directions", "search_places", "search_seattle_corpus"}, names)
	})
}

func TestNewRejectsBadTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.ReadTimeout = "soon"
	_, err := server.New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.read_timeout")
}

func TestNewCorpusUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corpus.Backend = "ftp"
	_, err := server.NewCorpus(cfg)
	require.Error(t, err)
}

func TestNewModelProviders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Name = "claude-test"
	m, err := server.NewModel(cfg)
	require.NoError(t, err)
	assert.Equal(t, "claude-test", m.Name())

	cfg.Model.Provider = config.ProviderOpenAI
	cfg.Model.Name = "gpt-test"
	m, err = server.NewModel(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-test", m.Name())

	cfg.Model.Provider = "parrot"
	_, err = server.NewModel(cfg)
	require.Error(t, err)
}
