// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with `swag init -g cmd/server/main.go`.
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
        "/customers": {
            "get": {"tags": ["Customers"], "summary": "List customers", "security": [{"BearerAuth": []}]},
            "post": {"tags": ["Customers"], "summary": "Register customer", "security": [{"BearerAuth": []}]}
        },
        "/customers/by-token": {
            "get": {"tags": ["Customers"], "summary": "Look up customer by QR token", "security": [{"BearerAuth": []}]}
        },
        "/customers/birthdays": {
            "get": {"tags": ["Customers"], "summary": "Birthdays in a month", "security": [{"BearerAuth": []}]}
        },
        "/customers/{id}": {
            "get": {"tags": ["Customers"], "summary": "Get customer", "security": [{"BearerAuth": []}]},
            "put": {"tags": ["Customers"], "summary": "Update customer", "security": [{"BearerAuth": []}]}
        },
        "/customers/{id}/qr": {
            "get": {"tags": ["QR"], "summary": "Customer QR card", "security": [{"BearerAuth": []}]}
        },
        "/customers/{id}/balance": {
            "get": {"tags": ["Customers"], "summary": "Verify wallet against ledger", "security": [{"BearerAuth": []}]}
        },
        "/recharge": {
            "post": {"tags": ["Ledger"], "summary": "Recharge wallet", "security": [{"BearerAuth": []}]}
        },
        "/transactions": {
            "get": {"tags": ["Ledger"], "summary": "List ledger entries", "security": [{"BearerAuth": []}]}
        },
        "/sessions": {
            "get": {"tags": ["Sessions"], "summary": "List sessions", "security": [{"BearerAuth": []}]}
        },
        "/sessions/start": {
            "post": {"tags": ["Sessions"], "summary": "Start session", "security": [{"BearerAuth": []}]}
        },
        "/sessions/active": {
            "get": {"tags": ["Sessions"], "summary": "Active sessions", "security": [{"BearerAuth": []}]}
        },
        "/sessions/overdue": {
            "get": {"tags": ["Sessions"], "summary": "Overdue sessions", "security": [{"BearerAuth": []}]}
        },
        "/sessions/{id}/exit": {
            "post": {"tags": ["Sessions"], "summary": "End session", "security": [{"BearerAuth": []}]}
        },
        "/plans": {
            "get": {"tags": ["Catalog"], "summary": "List price plans", "security": [{"BearerAuth": []}]},
            "post": {"tags": ["Catalog"], "summary": "Create price plan", "security": [{"BearerAuth": []}]}
        },
        "/plans/{id}": {
            "put": {"tags": ["Catalog"], "summary": "Update price plan", "security": [{"BearerAuth": []}]},
            "delete": {"tags": ["Catalog"], "summary": "Deactivate price plan", "security": [{"BearerAuth": []}]}
        },
        "/offers": {
            "get": {"tags": ["Catalog"], "summary": "List recharge offers", "security": [{"BearerAuth": []}]},
            "post": {"tags": ["Catalog"], "summary": "Create recharge offer", "security": [{"BearerAuth": []}]}
        },
        "/offers/{id}": {
            "put": {"tags": ["Catalog"], "summary": "Update recharge offer", "security": [{"BearerAuth": []}]},
            "delete": {"tags": ["Catalog"], "summary": "Deactivate recharge offer", "security": [{"BearerAuth": []}]}
        },
        "/dashboard": {
            "get": {"tags": ["Reports"], "summary": "Dashboard", "security": [{"BearerAuth": []}]}
        },
        "/export/{kind}": {
            "get": {"tags": ["Reports"], "summary": "Export data", "security": [{"BearerAuth": []}]}
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
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Dazzlers Den Backend API",
	Description:      "Customer wallets, recharges and timed play sessions backed by an immutable ledger",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
