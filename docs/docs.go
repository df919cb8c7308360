// Package docs registers the OpenAPI description served at /swagger.
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
        "/api/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Sign up",
                "parameters": [
                    {"description": "New account", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/models.SignupRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/models.LoginRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log out",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/check-session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current session",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/forgot-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Request a password reset code",
                "parameters": [
                    {"description": "Account email", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/models.ForgotPasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/reset-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Reset password with a code",
                "parameters": [
                    {"description": "Code and new password", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/models.ResetPasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/search": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Search jobs",
                "parameters": [
                    {"description": "source is all, arbeitnow or jsearch", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/models.SearchRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/recommended-jobs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Recommended jobs",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "JSearch quota usage",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.QuotaStats"}}}
            }
        },
        "/api/profile/update": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Profile"],
                "summary": "Update profile",
                "parameters": [
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/models.ProfileUpdate"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/settings/update": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Profile"],
                "summary": "Update settings",
                "parameters": [
                    {"description": "Settings to change", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/models.SettingsUpdate"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "models.SignupRequest": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string"}}
        },
        "models.LoginRequest": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "models.ForgotPasswordRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}}
        },
        "models.ResetPasswordRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "code": {"type": "string"}, "new_password": {"type": "string"}}
        },
        "models.SearchRequest": {
            "type": "object",
            "properties": {"query": {"type": "string"}, "location": {"type": "string"}, "source": {"type": "string"}}
        },
        "models.ProfileUpdate": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "preferred_job_titles": {"type": "array", "items": {"type": "string"}},
                "preferred_locations": {"type": "array", "items": {"type": "string"}},
                "preferred_job_types": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.SettingsUpdate": {
            "type": "object",
            "properties": {"dark_mode": {"type": "boolean"}, "notifications_enabled": {"type": "boolean"}}
        },
        "models.QuotaStats": {
            "type": "object",
            "properties": {"used": {"type": "integer"}, "remaining": {"type": "integer"}, "total": {"type": "integer"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Job Sphere API",
	Description:      "Accounts, sessions and job search across Arbeitnow and JSearch.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
