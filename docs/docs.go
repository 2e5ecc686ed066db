// Package docs holds the Swagger document served at /api/swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/profiles": {
            "get": {"tags": ["profiles"], "summary": "List profiles, newest first", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["profiles"], "summary": "Create a profile", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}}}
        },
        "/profiles/{id}": {
            "get": {"tags": ["profiles"], "summary": "Get a profile", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["profiles"], "summary": "Update a profile", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}},
            "delete": {"tags": ["profiles"], "summary": "Delete a profile with its comments and likes", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "No content"}}}
        },
        "/profiles/{id}/comments": {
            "get": {"tags": ["comments"], "summary": "List comments; tree=true groups replies", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "tree", "in": "query", "type": "boolean"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["comments"], "summary": "Post a comment or reply", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"201": {"description": "Created"}}}
        },
        "/profiles/{id}/comments/{commentId}": {
            "put": {"tags": ["comments"], "summary": "Edit a comment (comment_edit flag)", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["comments"], "summary": "Delete a comment and its replies", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No content"}}}
        },
        "/profiles/{id}/likes": {
            "get": {"tags": ["likes"], "summary": "Like count and caller status", "responses": {"200": {"description": "OK"}}}
        },
        "/profiles/{id}/like": {
            "post": {"tags": ["likes"], "summary": "Like a profile", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Already liked"}}},
            "delete": {"tags": ["likes"], "summary": "Unlike a profile", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No content"}}}
        },
        "/profiles/{id}/like/toggle": {
            "post": {"tags": ["likes"], "summary": "Toggle the caller's like", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/images": {
            "post": {"tags": ["images"], "summary": "Upload an avatar image", "consumes": ["multipart/form-data"], "responses": {"201": {"description": "Created"}}}
        },
        "/auth/session": {"get": {"tags": ["auth"], "summary": "Current session and user", "responses": {"200": {"description": "OK"}}}},
        "/auth/refresh": {"post": {"tags": ["auth"], "summary": "Rotate a refresh token", "responses": {"200": {"description": "OK"}}}},
        "/auth/logout": {"post": {"tags": ["auth"], "summary": "Sign out", "responses": {"200": {"description": "OK"}}}},
        "/admin/login": {"post": {"tags": ["admin"], "summary": "Admin email and password sign-in", "responses": {"200": {"description": "OK"}}}},
        "/admin/check": {"get": {"tags": ["admin"], "summary": "Whether the client is an admin", "responses": {"200": {"description": "OK"}}}},
        "/dialogs": {
            "get": {"tags": ["dialogs"], "summary": "Current confirmation dialog", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["dialogs"], "summary": "Open a confirmation dialog", "responses": {"200": {"description": "OK"}}}
        },
        "/dialogs/confirm": {"post": {"tags": ["dialogs"], "summary": "Confirm the open dialog", "responses": {"200": {"description": "OK"}}}},
        "/dialogs/cancel": {"post": {"tags": ["dialogs"], "summary": "Cancel the open dialog", "responses": {"200": {"description": "OK"}}}},
        "/feature-flags": {"get": {"tags": ["flags"], "summary": "Configured and evaluated feature flags", "responses": {"200": {"description": "OK"}}}},
        "/ws": {"get": {"tags": ["realtime"], "summary": "Profile events over WebSocket", "responses": {"101": {"description": "Switching protocols"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8375",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "eureka-ssul API",
	Description:      "Profile sharing with comments, replies and likes",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
