// Package docs registers the admin API's OpenAPI spec with swaggo's global
// registry so http-swagger can serve it at /docs. Normally produced by
// `swag init` from the @Summary/@Router annotations in internal/admin; kept
// here by hand since the spec is small and the generator isn't run as part
// of this build.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"summary": "Health check", "tags": ["System"], "responses": {"200": {"description": "ok"}}}},
        "/stats": {"get": {"summary": "Registry statistics", "tags": ["System"], "responses": {"200": {"description": "ok"}}}},
        "/domains": {
            "get": {"summary": "List domains", "tags": ["Domains"], "responses": {"200": {"description": "ok"}}},
            "post": {"summary": "Add a domain", "tags": ["Domains"], "responses": {"200": {"description": "added"}}}
        },
        "/domains/{name}": {
            "delete": {"summary": "Remove a domain", "tags": ["Domains"], "responses": {"200": {"description": "removed"}}}
        },
        "/domains/{name}/verify": {
            "post": {"summary": "Force domain verification", "tags": ["Domains"], "responses": {"200": {"description": "ok"}}}
        },
        "/metrics": {"get": {"summary": "Prometheus metrics", "tags": ["System"], "responses": {"200": {"description": "ok"}}}}
    }
}`

// SwaggerInfo holds exported swagger metadata, following the shape `swag
// init` emits so operators regenerating this package later get a drop-in
// replacement rather than a structural diff.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "dnsauthd admin API",
	Description:      "Domain registry control plane for the cybertemp.xyz authoritative DNS responder.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
