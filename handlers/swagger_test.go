package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSwaggerEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterSwagger(g, APIDoc{Title: "CRUD Template", Version: "v1", Resources: []string{"/api/v1/records"}, Auth: true})

	req := httptest.NewRequest("GET", "/api-docs", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "swagger-ui")
	require.Contains(t, w.Body.String(), "CRUD Template - Swagger")

	req2 := httptest.NewRequest("GET", "/api-docs/doc.json", nil)
	w2 := httptest.NewRecorder()
	g.ServeHTTP(w2, req2)
	require.Equal(t, 200, w2.Code)

	var doc struct {
		OpenAPI string                            `json:"openapi"`
		Paths   map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &doc))
	require.Equal(t, "3.0.0", doc.OpenAPI)
	require.Contains(t, doc.Paths, "/api/v1/records")
	require.Contains(t, doc.Paths, "/api/v1/records/{id}")
	require.Contains(t, doc.Paths["/api/v1/records"], "patch")
	require.Contains(t, doc.Paths["/api/v1/records/{id}"], "delete")
	require.Contains(t, doc.Paths, "/api/v1/auth/login")
	require.Contains(t, doc.Paths, "/api/v1/auth/logout")
}

func TestSwaggerWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterSwagger(g, APIDoc{Title: "docs", Resources: []string{"documents"}})

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest("GET", "/api-docs/doc.json", nil))
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), `"/documents/{id}"`)
	require.NotContains(t, w.Body.String(), "/api/v1/auth/login")
}
