// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["health"],
                "summary": "Show the status of server",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/transactions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Post a monetary movement",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "transaction", "required": true, "schema": {"$ref": "#/definitions/model.ExecuteTransactionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Transaction"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/accounts": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Open an account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "account", "required": true, "schema": {"$ref": "#/definitions/model.OpenAccountRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Account"}},
                    "404": {"description": "Client not found", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "503": {"description": "No free account number", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/accounts/{accountId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Get an account",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "accountId", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Account"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/accounts/{accountId}/transactions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "List account transactions for a period",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "accountId", "required": true},
                    {"type": "string", "in": "query", "name": "start", "required": true},
                    {"type": "string", "in": "query", "name": "end", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Transaction"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        },
        "/api/accounts/{accountId}/statement": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["accounts"],
                "summary": "Build an account statement",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "accountId", "required": true},
                    {"type": "string", "in": "query", "name": "start", "required": true},
                    {"type": "string", "in": "query", "name": "end", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Statement"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/common.AppError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.AppError"}}
                }
            }
        }
    },
    "definitions": {
        "common.AppError": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "model.ExecuteTransactionRequest": {
            "type": "object",
            "required": ["amount", "kind"],
            "properties": {
                "kind": {"type": "string", "example": "TRANSFER"},
                "amount": {"type": "string", "example": "30.00"},
                "source_account_id": {"type": "string"},
                "destination_account_id": {"type": "string"}
            }
        },
        "model.OpenAccountRequest": {
            "type": "object",
            "required": ["owner_id"],
            "properties": {
                "owner_id": {"type": "string"},
                "label": {"type": "string"}
            }
        },
        "model.Account": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "number": {"type": "string"},
                "label": {"type": "string"},
                "owner_id": {"type": "string"},
                "balance": {"type": "string"},
                "status": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "model.Transaction": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "amount": {"type": "string"},
                "source_account_id": {"type": "string"},
                "destination_account_id": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "model.Statement": {
            "type": "object",
            "properties": {
                "reference": {"type": "string"},
                "period": {"type": "string"},
                "generated_at": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "account": {"type": "object"},
                "owner": {"type": "object"},
                "opening_balance": {"type": "string"},
                "closing_balance": {"type": "string"},
                "variation": {"type": "string"},
                "lines": {"type": "array", "items": {"type": "object"}},
                "totals": {"type": "object"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Go-Ledger API",
	Description:      "Banking ledger API: movements, account history and statements.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
