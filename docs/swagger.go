// Package docs AssurCore API documentation
package docs

import "github.com/swaggo/swag"

// Swagger documentation info
// @title AssurCore API
// @version 1.0
// @description Organization hierarchy and multi-tenant data visibility for the AssurCore insurance platform
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@assurcore.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8003
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// @tag.name organizations
// @tag.description Organizations and their hierarchy
// @tag.name users
// @tag.description Users of the visible organizations
// @tag.name roles
// @tag.description Roles of the visible organizations
// @tag.name audit
// @tag.description Audit trail of organization changes
// @tag.name events
// @tag.description Live organization events

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8003",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "AssurCore API",
	Description:      "Organization hierarchy and multi-tenant data visibility for the AssurCore insurance platform",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "API Support", "email": "support@assurcore.local"},
        "license": {"name": "Apache 2.0", "url": "http://www.apache.org/licenses/LICENSE-2.0.html"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/organizations": {
            "get": {"tags": ["organizations"], "summary": "List organizations", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}},
            "post": {"tags": ["organizations"], "summary": "Create organization", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "409": {"description": "Code already exists"}, "422": {"description": "Invalid parent or validation failed"}}}
        },
        "/organizations/by-code/{code}": {
            "get": {"tags": ["organizations"], "summary": "Get organization by code", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/organizations/{id}": {
            "get": {"tags": ["organizations"], "summary": "Get organization", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"tags": ["organizations"], "summary": "Update organization", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Tenant required"}, "409": {"description": "Stale version or duplicate code"}, "422": {"description": "Invalid parent"}}},
            "delete": {"tags": ["organizations"], "summary": "Delete organization", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Tenant required"}, "409": {"description": "Has children or still in use"}}}
        },
        "/organizations/{id}/activate": {
            "post": {"tags": ["organizations"], "summary": "Activate organization", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Transition not allowed"}}}
        },
        "/organizations/{id}/deactivate": {
            "post": {"tags": ["organizations"], "summary": "Deactivate organization", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Transition not allowed"}}}
        },
        "/organizations/{id}/suspend": {
            "post": {"tags": ["organizations"], "summary": "Suspend organization", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Transition not allowed"}}}
        },
        "/organizations/{id}/archive": {
            "post": {"tags": ["organizations"], "summary": "Archive organization", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Transition not allowed"}}}
        },
        "/organizations/{id}/hierarchy": {
            "get": {"tags": ["organizations"], "summary": "Get organization tree", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/organizations/{id}/path": {
            "get": {"tags": ["organizations"], "summary": "Get organization path", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/organizations/{id}/ancestors": {
            "get": {"tags": ["organizations"], "summary": "Get ancestor ids", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/organizations/{id}/descendants": {
            "get": {"tags": ["organizations"], "summary": "Get descendant ids", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/organizations/{id}/visible": {
            "get": {"tags": ["organizations"], "summary": "Get visible organization ids", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/organizations/{id}/is-ancestor-of/{other}": {
            "get": {"tags": ["organizations"], "summary": "Check ancestry", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "other", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/users": {
            "get": {"tags": ["users"], "summary": "List users", "responses": {"200": {"description": "OK"}, "403": {"description": "Tenant required"}}}
        },
        "/roles": {
            "get": {"tags": ["roles"], "summary": "List roles", "responses": {"200": {"description": "OK"}, "403": {"description": "Tenant required"}}}
        },
        "/audit-logs": {
            "get": {"tags": ["audit"], "summary": "List audit logs", "responses": {"200": {"description": "OK"}, "403": {"description": "Tenant required"}}}
        }
    }
}`
