// Package handlers serves the API documentation.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIDoc describes what RegisterSwagger documents.
type APIDoc struct {
	Title     string
	Version   string
	Resources []string // mount paths of generic CRUD resources, e.g. /api/v1/records
	Auth      bool     // document the /api/v1/auth routes
}

// RegisterSwagger registers the Swagger UI and its OpenAPI document.
// - GET /api-docs          -> HTML page that loads the OpenAPI JSON
// - GET /api-docs/doc.json -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRoutes, doc APIDoc) {
	spec := openAPI(doc)
	page := strings.ReplaceAll(swaggerHTML, "{{title}}", doc.Title)

	r.GET("/api-docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, page)
	})
	r.GET("/api-docs/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, spec)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>{{title}} - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/api-docs/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

func openAPI(doc APIDoc) gin.H {
	paths := gin.H{
		"/":       gin.H{"get": op("Service banner", "200", "banner text")},
		"/health": gin.H{"get": op("Liveness check", "200", "healthy")},
		"/ready": gin.H{"get": gin.H{
			"summary":   "Readiness check",
			"responses": gin.H{"200": desc("ready"), "503": desc("not ready")},
		}},
		"/metrics": gin.H{"get": op("Prometheus metrics", "200", "text exposition")},
	}
	for _, res := range doc.Resources {
		res = "/" + strings.Trim(res, "/")
		paths[res] = gin.H{
			"get":    withQuery(op("List documents matching the query string", "200", "documents")),
			"post":   withBody(op("Create one document, or several when data is an array", "201", "created")),
			"put":    withBody(withQuery(updateOp("Update the first document matching the query string"))),
			"patch":  withBody(withQuery(op("Update and return the first matching document", "200", "updated document"))),
			"delete": withQuery(deleteOp("Delete the first document matching the query string")),
		}
		paths[res+"/{id}"] = gin.H{
			"parameters": []gin.H{{"name": "id", "in": "path", "required": true, "schema": gin.H{"type": "string"}}},
			"get":        op("Get a document by id", "200", "document"),
			"put":        withBody(updateOp("Update a document by id")),
			"patch":      withBody(op("Update and return a document by id", "200", "updated document")),
			"delete":     deleteOp("Delete a document by id"),
		}
	}
	if doc.Auth {
		paths["/api/v1/auth/register"] = gin.H{"post": credentials(op("Register an account", "201", "account"), "name", "email", "password")}
		paths["/api/v1/auth/login"] = gin.H{"post": credentials(op("Exchange credentials for an access token", "200", "token"), "email", "password")}
		paths["/api/v1/auth/logout"] = gin.H{"post": secured(op("Revoke the bearer token", "200", "logged out"))}
		paths["/api/v1/auth/me"] = gin.H{"get": secured(op("Current account", "200", "account"))}
	}
	return gin.H{
		"openapi": "3.0.0",
		"info":    gin.H{"title": doc.Title, "version": doc.Version},
		"components": gin.H{"securitySchemes": gin.H{
			"bearer": gin.H{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
		}},
		"paths": paths,
	}
}

func desc(d string) gin.H { return gin.H{"description": d} }

func op(summary, code, d string) gin.H {
	return gin.H{"summary": summary, "responses": gin.H{code: desc(d), "default": desc("{name, message} error")}}
}

func updateOp(summary string) gin.H {
	return gin.H{"summary": summary, "responses": gin.H{
		"200": desc("modified"), "304": desc("not modified"), "default": desc("{name, message} error"),
	}}
}

func deleteOp(summary string) gin.H {
	return gin.H{"summary": summary, "responses": gin.H{
		"410": desc("deleted"), "304": desc("nothing deleted"), "default": desc("{name, message} error"),
	}}
}

func withQuery(o gin.H) gin.H {
	o["parameters"] = []gin.H{{
		"name": "filter", "in": "query", "style": "form", "explode": true,
		"schema": gin.H{"type": "object", "additionalProperties": gin.H{"type": "string"}},
		"description": "field equality; repeated keys match any value; _limit, _skip and _sort shape listings",
	}}
	return o
}

func withBody(o gin.H) gin.H {
	o["requestBody"] = gin.H{"required": true, "content": gin.H{"application/json": gin.H{"schema": gin.H{
		"type":       "object",
		"required":   []string{"data"},
		"properties": gin.H{"data": gin.H{}},
	}}}}
	return o
}

func credentials(o gin.H, fields ...string) gin.H {
	props := gin.H{}
	for _, f := range fields {
		props[f] = gin.H{"type": "string"}
	}
	o["requestBody"] = gin.H{"required": true, "content": gin.H{"application/json": gin.H{"schema": gin.H{
		"type": "object", "required": fields, "properties": props,
	}}}}
	return o
}

func secured(o gin.H) gin.H {
	o["security"] = []gin.H{{"bearer": []string{}}}
	return o
}
