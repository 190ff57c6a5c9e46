// Package apidocs registers the daemon's OpenAPI document with swag so the
// swagger UI under /swagger/ can serve it.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"bearer": []}],
    "paths": {
        "/api/intake": {
            "post": {
                "summary": "Submit one raw content item",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/IntakeRequest"}}],
                "responses": {
                    "200": {"description": "Item received", "schema": {"$ref": "#/definitions/IntakeResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/batch": {
            "post": {
                "summary": "Insert records in up to ten independent operations",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/BatchOperation"}}}],
                "responses": {
                    "200": {"description": "Every operation succeeded", "schema": {"$ref": "#/definitions/BatchResponse"}},
                    "207": {"description": "At least one operation failed", "schema": {"$ref": "#/definitions/BatchResponse"}},
                    "400": {"description": "Malformed envelope", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/stages/{stage}": {
            "post": {
                "summary": "Trigger one pipeline stage for one item",
                "parameters": [
                    {"in": "path", "name": "stage", "required": true, "type": "string", "enum": ["analysis", "design", "asset_validation", "page_composition", "seo", "quality", "deployment"]},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/TriggerRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stage ran, was held, or replayed a prior success", "schema": {"$ref": "#/definitions/TriggerResponse"}},
                    "404": {"description": "Unknown item", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Item is not at the stage's start status or an attempt is open", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "502": {"description": "Collaborator failure recorded in the stage log", "schema": {"$ref": "#/definitions/TriggerResponse"}},
                    "504": {"description": "Collaborator timeout recorded in the stage log", "schema": {"$ref": "#/definitions/TriggerResponse"}}
                }
            }
        },
        "/api/items": {
            "get": {
                "summary": "List items",
                "parameters": [
                    {"in": "query", "name": "status", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {"200": {"description": "Items", "schema": {"$ref": "#/definitions/ItemListResponse"}}}
            }
        },
        "/api/items/{id}": {
            "get": {
                "summary": "Describe one item",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Item", "schema": {"$ref": "#/definitions/ItemResponse"}},
                    "404": {"description": "Unknown item", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/items/{id}/history": {
            "get": {
                "summary": "Stage log for one item",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Records in append order", "schema": {"$ref": "#/definitions/HistoryResponse"}}}
            }
        },
        "/api/items/{id}/approve": {
            "post": {
                "summary": "Release a quality-approved or reviewed item for publishing",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {"200": {"description": "Updated item", "schema": {"$ref": "#/definitions/ItemResponse"}}}
            }
        },
        "/api/items/{id}/review": {
            "post": {
                "summary": "Route an item to manual review",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {"200": {"description": "Updated item", "schema": {"$ref": "#/definitions/ItemResponse"}}}
            }
        },
        "/api/items/{id}/retry": {
            "post": {
                "summary": "Return a failed item to the start of the stage that failed it",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Updated item", "schema": {"$ref": "#/definitions/ItemResponse"}}}
            }
        },
        "/api/status": {
            "get": {
                "summary": "Daemon and workflow status",
                "responses": {"200": {"description": "Status", "schema": {"$ref": "#/definitions/DaemonStatus"}}}
            }
        }
    },
    "definitions": {
        "IntakeRequest": {
            "type": "object",
            "required": ["content_id", "raw_content"],
            "properties": {
                "content_id": {"type": "string"},
                "raw_content": {"type": "object"}
            }
        },
        "IntakeResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "content_id": {"type": "string"},
                "processing_time_ms": {"type": "integer"},
                "final_status": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "BatchOperation": {
            "type": "object",
            "required": ["operation", "table", "data"],
            "properties": {
                "operation": {"type": "string", "enum": ["insert"]},
                "table": {"type": "string"},
                "data": {"type": "object"}
            }
        },
        "BatchResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "total_operations": {"type": "integer"},
                "successful_operations": {"type": "integer"},
                "failed_operations": {"type": "integer"},
                "total_inserted_records": {"type": "integer"},
                "processing_time_ms": {"type": "integer"},
                "results": {"type": "array", "items": {"type": "object"}}
            }
        },
        "TriggerRequest": {
            "type": "object",
            "required": ["content_id"],
            "properties": {
                "content_id": {"type": "string"},
                "force": {"type": "boolean"}
            }
        },
        "TriggerResponse": {
            "type": "object",
            "properties": {
                "content_id": {"type": "string"},
                "stage": {"type": "string"},
                "attempt_id": {"type": "string"},
                "previous_status": {"type": "string"},
                "status": {"type": "string"},
                "skipped": {"type": "boolean"},
                "held": {"type": "boolean"},
                "failed": {"type": "boolean"},
                "reason": {"type": "string"},
                "error_kind": {"type": "string"},
                "error": {"type": "string"},
                "detail": {"type": "object"},
                "duration_ms": {"type": "integer"}
            }
        },
        "DecisionRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string"}}
        },
        "Item": {
            "type": "object",
            "properties": {
                "content_id": {"type": "string"},
                "status": {"type": "string"},
                "title": {"type": "string"},
                "category": {"type": "string"},
                "confidence_score": {"type": "number"},
                "language": {"type": "string"},
                "terminal": {"type": "boolean"},
                "awaiting_review": {"type": "boolean"},
                "raw_payload": {"type": "object"},
                "page": {"type": "object"},
                "seo_elements": {"type": "object"},
                "quality_metrics": {"type": "object"},
                "error_logs": {"type": "array", "items": {"type": "object"}},
                "processing_start": {"type": "string", "format": "date-time"},
                "processing_end": {"type": "string", "format": "date-time"}
            }
        },
        "ItemResponse": {
            "type": "object",
            "properties": {"item": {"$ref": "#/definitions/Item"}}
        },
        "ItemListResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/Item"}}}
        },
        "HistoryResponse": {
            "type": "object",
            "properties": {
                "content_id": {"type": "string"},
                "records": {"type": "array", "items": {"type": "object"}}
            }
        },
        "DaemonStatus": {
            "type": "object",
            "properties": {
                "running": {"type": "boolean"},
                "pid": {"type": "integer"},
                "storage_driver": {"type": "string"},
                "database_path": {"type": "string"},
                "lock_file_path": {"type": "string"},
                "api_bind": {"type": "string"},
                "workflow": {"type": "object"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {
                    "type": "object",
                    "properties": {
                        "kind": {"type": "string"},
                        "stage": {"type": "string"},
                        "operation": {"type": "string"},
                        "hint": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "pressline API",
	Description:      "Content pipeline intake, stage triggers, and operator decisions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
