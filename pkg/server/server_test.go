package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapestry-kg/tapestry"
	"github.com/tapestry-kg/tapestry/pkg/config"
	"github.com/tapestry-kg/tapestry/pkg/server/dto"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *tapestry.Client) {
	t.Helper()

	client, err := tapestry.New(nil, tapestry.WithoutPersistence())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, client.Close()) })

	cfg := config.Default()
	cfg.Server.Mode = "test"
	srv := New(cfg, client)
	srv.Setup()
	return srv, client
}

func do(t *testing.T, srv *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, dto.Result) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var result dto.Result
	if rec.Body.Len() > 0 {
		// Health endpoints respond outside the Result envelope.
		_ = json.Unmarshal(rec.Body.Bytes(), &result)
	}
	return rec, result
}

func TestNodeCRUDOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, result := do(t, srv, http.MethodPost, "/api/v1/nodes", gin.H{
		"id": "ada", "type": "person", "label": "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, result.Success)

	rec, result = do(t, srv, http.MethodGet, "/api/v1/nodes/ada", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, "Ada", data["label"])

	// Duplicate id is rejected.
	rec, result = do(t, srv, http.MethodPost, "/api/v1/nodes", gin.H{
		"id": "ada", "type": "person", "label": "Ada",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, result.Success)

	rec, result = do(t, srv, http.MethodPatch, "/api/v1/nodes/ada", gin.H{
		"label": "Ada Lovelace",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data = result.Data.(map[string]interface{})
	assert.Equal(t, "Ada Lovelace", data["label"])

	rec, _ = do(t, srv, http.MethodDelete, "/api/v1/nodes/ada", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/nodes/ada", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEdgeRoutesAndDependentEdges(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := client.AddNode(ctx, &types.Node{ID: id, Type: types.ConceptNodeType, Label: id})
		require.NoError(t, err)
	}

	rec, _ := do(t, srv, http.MethodPost, "/api/v1/edges", gin.H{
		"id": "ab", "type": "related_to", "source": "a", "target": "b",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Node deletion without cascade trips the dependent-edge guard.
	rec, result := do(t, srv, http.MethodDelete, "/api/v1/nodes/a", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, result.Error, "incident edges")

	rec, _ = do(t, srv, http.MethodDelete, "/api/v1/nodes/a?cascade=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, client.EdgeCount())
}

func TestQueryAnalyticsTemporalRoutes(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := client.AddNode(ctx, &types.Node{ID: id, Type: types.ConceptNodeType, Label: id})
		require.NoError(t, err)
	}
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}} {
		_, err := client.AddEdge(ctx, &types.Edge{
			ID: e[0] + e[1], Type: types.RelatedToEdgeType, Source: e[0], Target: e[1],
		})
		require.NoError(t, err)
	}

	rec, result := do(t, srv, http.MethodPost, "/api/v1/query/path", gin.H{
		"start": "a", "end": "c", "type": "shortest",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	paths := result.Data.([]interface{})
	require.Len(t, paths, 1)

	rec, result = do(t, srv, http.MethodGet, "/api/v1/analytics/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := result.Data.(map[string]interface{})
	assert.Equal(t, float64(3), stats["nodes"])

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/analytics/centrality", gin.H{
		"kind": "degree",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Zero date fails request validation.
	rec, result = do(t, srv, http.MethodPost, "/api/v1/temporal/slice", gin.H{
		"window_hours": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, result.Success)

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/temporal/evolution/a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/temporal/evolution/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
