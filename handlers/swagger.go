package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves a Swagger UI page and the OpenAPI document:
// - GET /swagger/index.html
// - GET /swagger/doc.json
func RegisterSwagger(r gin.IRouter) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>pdfscan API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "pdfscan", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "error": { "type": "string" } } },
      "PatientData": { "type": "object", "properties": { "name": { "type": "string", "nullable": true }, "dateOfBirth": { "type": "string", "format": "date", "nullable": true } } },
      "Status": {
        "type": "object",
        "properties": {
          "id": { "type": "string" },
          "filename": { "type": "string" },
          "extractionStatus": { "type": "string", "enum": ["pending", "processing", "completed", "failed"] },
          "extractedText": { "type": "string" },
          "patientData": { "$ref": "#/components/schemas/PatientData" },
          "error": { "type": "string" },
          "updatedAt": { "type": "string", "format": "date-time" }
        }
      }
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/upload": {
      "post": {
        "summary": "Upload a PDF (also /api/upload)",
        "requestBody": { "content": { "multipart/form-data": { "schema": { "type": "object", "properties": { "file": { "type": "string", "format": "binary" } } } } } },
        "responses": {
          "200": { "description": "document created in pending state" },
          "400": { "description": "no file, not a PDF or too large", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Error" } } } },
          "500": { "description": "storage failure" }
        }
      }
    },
    "/extract": {
      "post": {
        "summary": "Run extraction for a document (also /api/extract)",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "documentId": { "type": "string" } }, "required": ["documentId"] } } } },
        "responses": {
          "200": { "description": "completed, or already extracted" },
          "400": { "description": "missing documentId" },
          "404": { "description": "unknown document" },
          "409": { "description": "extraction already in progress" },
          "500": { "description": "extraction failed; the document is now failed" }
        }
      }
    },
    "/documents/{id}/status": {
      "get": {
        "summary": "Extraction status (also /api/documents/{id}/status)",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ],
        "responses": { "200": { "description": "status", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Status" } } } }, "404": { "description": "unknown document" } }
      }
    },
    "/api/documents": { "get": { "summary": "List documents, newest first", "responses": { "200": { "description": "documents" } } } },
    "/api/documents/{id}": {
      "get": { "summary": "Full document record", "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ], "responses": { "200": { "description": "document" }, "404": { "description": "unknown document" } } },
      "delete": { "summary": "Delete record and stored PDF", "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ], "responses": { "204": { "description": "deleted" }, "404": { "description": "unknown document" } } }
    },
    "/api/documents/{id}/download": {
      "get": { "summary": "Presigned download link", "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ], "responses": { "200": { "description": "url and expiresIn seconds" }, "501": { "description": "object store cannot presign" } } }
    },
    "/api/auth/revoke": { "post": { "summary": "Revoke the caller's bearer token", "responses": { "200": { "description": "revoked" }, "501": { "description": "no Redis configured" } } } },
    "/api/auth/me": { "get": { "summary": "Verified token claims", "responses": { "200": { "description": "claims" } } } },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "metrics" } } } }
  }
}`
