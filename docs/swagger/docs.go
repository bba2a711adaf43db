// Package swagger registers the OpenAPI document served at /swagger/doc.json.
// It is written to match the swag annotations on the handlers in
// adapters/http and cmd/saasgate/main.go; keep the two in step when either
// changes, or regenerate with `swag init -g cmd/saasgate/main.go -o docs/swagger`.
package swagger

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
        "/auth/{path}": {
            "get": {
                "description": "Matches the path against the configured callback patterns and redirects to the next parameter",
                "tags": [
                    "Auth"
                ],
                "summary": "Auth callback",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Callback path below /auth",
                        "name": "path",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Local path to continue to",
                        "name": "next",
                        "in": "query"
                    }
                ],
                "responses": {
                    "302": {
                        "description": "Redirect to the next page"
                    },
                    "404": {
                        "description": "No callback route matches",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    }
                }
            }
        },
        "/healthz": {
            "get": {
                "description": "Returns OK if the service is running",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "System"
                ],
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.HealthResponse"
                        }
                    }
                }
            }
        },
        "/settings": {
            "get": {
                "description": "Returns the values the caller's scope can read; sensitive values are masked",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Settings"
                ],
                "summary": "List settings",
                "parameters": [
                    {
                        "type": "string",
                        "description": "User the request acts for",
                        "name": "X-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Organization the request acts for",
                        "name": "X-Organization-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    }
                }
            }
        },
        "/settings/schema": {
            "get": {
                "description": "Returns every field contributed through server_get_settings_schema",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Settings"
                ],
                "summary": "Get settings schema",
                "parameters": [
                    {
                        "type": "string",
                        "description": "User the request acts for",
                        "name": "X-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Organization the request acts for",
                        "name": "X-Organization-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    },
                    "500": {
                        "description": "Conflicting fragments",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    }
                }
            }
        },
        "/settings/{name}": {
            "get": {
                "description": "Returns the stored value or the declared default",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Settings"
                ],
                "summary": "Get setting",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Setting name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "User the request acts for",
                        "name": "X-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Organization the request acts for",
                        "name": "X-Organization-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    },
                    "400": {
                        "description": "Scope lacks the owner the setting needs",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    },
                    "404": {
                        "description": "Unknown setting",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    }
                }
            },
            "put": {
                "description": "Validates the value against the schema and stores it in the field's backend",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Settings"
                ],
                "summary": "Update setting",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Setting name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "User the request acts for",
                        "name": "X-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Organization the request acts for",
                        "name": "X-Organization-ID",
                        "in": "header"
                    },
                    {
                        "description": "New value",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.SettingValueRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    },
                    "400": {
                        "description": "Malformed body or missing scope",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    },
                    "404": {
                        "description": "Unknown setting",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    },
                    "422": {
                        "description": "Value failed validation",
                        "schema": {
                            "$ref": "#/definitions/jsonapi.Document"
                        }
                    }
                }
            }
        },
        "/version": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "System"
                ],
                "summary": "Get service version",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.VersionResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "http.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "example": "ok"
                }
            }
        },
        "http.SettingValueRequest": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {
                        "attributes": {
                            "type": "object",
                            "additionalProperties": {}
                        },
                        "type": {
                            "type": "string",
                            "example": "settings"
                        }
                    }
                }
            }
        },
        "http.VersionResponse": {
            "type": "object",
            "properties": {
                "service": {
                    "type": "string",
                    "example": "saasgate"
                },
                "version": {
                    "type": "string",
                    "example": "1.0.0"
                }
            }
        },
        "jsonapi.Document": {
            "type": "object",
            "properties": {
                "data": {},
                "errors": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/jsonapi.Error"
                    }
                },
                "meta": {
                    "type": "object",
                    "additionalProperties": {}
                }
            }
        },
        "jsonapi.Error": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "detail": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "saasgate API",
	Description:      "Settings, auth callback routing and pages assembled from feature extension points.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
