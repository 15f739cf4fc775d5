package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Cohort Sync API",
        "description": "Mirrors program rosters from the CRM of record into the local store and the remote LMS",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sync", "description": "Participant synchronization"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/sync/programs/{id}": {
            "post": {
                "tags": ["Sync"],
                "summary": "Sync a program's participants",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Sync result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A sync for this program is already running"},
                    "422": {"description": "Program is not configured for syncing"}
                }
            }
        }
    },
    "definitions": {
        "SyncResult": {
            "type": "object",
            "properties": {
                "program_id": {"type": "string"},
                "processed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "synced": {"type": "integer"},
                "failed": {"type": "integer"},
                "failures": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/FailedParticipant"}
                }
            }
        },
        "FailedParticipant": {
            "type": "object",
            "properties": {
                "participant_id": {"type": "string"},
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/SyncResult"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
