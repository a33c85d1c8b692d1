// Package api fitsthumb REST API
//
// @title           fitsthumb REST API
// @version         1.0.0
// @description     Looks up archive frames, decodes the tile-compressed FITS image and reports its summary.
// @host            localhost:8000
// @BasePath        /
package api

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
        "/": {
            "get": {
                "description": "Returns a plain text greeting",
                "produces": ["text/plain"],
                "tags": ["system"],
                "summary": "Welcome",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Check if the service is healthy",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/{frame_id}/": {
            "get": {
                "description": "Fetches the frame from the archive, decodes it and returns its summary",
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "Frame summary",
                "parameters": [
                    {"type": "integer", "description": "Archive frame id", "name": "frame_id", "in": "path", "required": true},
                    {"type": "string", "description": "Forwarded to the archive", "name": "Authorization", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/api.APIResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/api.FrameSummary"}}}]}},
                    "400": {"description": "Invalid frame id", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "401": {"description": "Archive rejected credentials", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "403": {"description": "Frame not accessible", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Frame not found", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "413": {"description": "Frame too large", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Frame could not be decoded", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "502": {"description": "Archive failure", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "504": {"description": "Archive timeout", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "api.FrameSummary": {
            "type": "object",
            "properties": {
                "cached": {"type": "boolean"},
                "filter": {"type": "string"},
                "frame_id": {"type": "integer"},
                "frame_size_bytes": {"type": "integer"},
                "frame_size_mb": {"type": "integer"},
                "height": {"type": "integer"},
                "pixels": {"type": "integer"},
                "width": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "fitsthumb REST API",
	Description:      "Looks up archive frames, decodes the tile-compressed FITS image and reports its summary.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
