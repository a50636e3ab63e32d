package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Enrolldesk API",
        "description": "Customer-record manager for students, courses and the enrollment lifecycle",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Enrollments", "description": "Enrollment records and lifecycle transitions"},
        {"name": "Selection", "description": "Per-session selection and bulk transitions"},
        {"name": "Pipeline", "description": "Status-bucketed views and summary counts"},
        {"name": "Students", "description": "Student roster"},
        {"name": "Courses", "description": "Course catalogue"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments from the cached collection",
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Create enrollment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Delete enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/enrollments/{id}/status": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Move an enrollment to a new status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionOutcome"}}
                }
            }
        },
        "/enrollments/refresh": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Re-sync the cached collection from the store",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/export": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Export the filtered enrollment list",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "description": "csv or pdf"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Document"}
                }
            }
        },
        "/selection": {
            "get": {
                "tags": ["Selection"],
                "summary": "List the session's selected enrollment ids",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Selection"],
                "summary": "Add enrollment ids to the session selection",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Selection"],
                "summary": "Clear the session selection",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/selection/remove": {
            "post": {
                "tags": ["Selection"],
                "summary": "Remove enrollment ids from the session selection",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/selection/transition": {
            "post": {
                "tags": ["Selection"],
                "summary": "Transition the selection (cascade-expanded) in one batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkTransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionOutcome"}}
                }
            }
        },
        "/pipeline": {
            "get": {
                "tags": ["Pipeline"],
                "summary": "Status-bucketed pipeline view of the filtered collection",
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pipeline/summary": {
            "get": {
                "tags": ["Pipeline"],
                "summary": "Per-status totals over the unfiltered collection",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Enrollment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "course_id": {"type": "string"},
                "status": {"type": "string", "enum": ["REQUESTED", "INVITED", "CONFIRMED", "COMPLETED", "WITHDRAWN", "REJECTED"]},
                "variant": {"type": "string"},
                "confirmed_date": {"type": "string"},
                "notes": {"type": "string"},
                "created_at": {"type": "string"},
                "student_first_name": {"type": "string"},
                "student_last_name": {"type": "string"},
                "student_email": {"type": "string"},
                "student_phone": {"type": "string"},
                "course_name": {"type": "string"}
            }
        },
        "CreateEnrollmentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "course_id": {"type": "string"},
                "variant": {"type": "string"},
                "notes": {"type": "string"},
                "status": {"type": "string"},
                "confirmed_date": {"type": "string"}
            },
            "required": ["student_id", "course_id"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "confirmed_date": {"type": "string"}
            },
            "required": ["status"]
        },
        "SelectionRequest": {
            "type": "object",
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["ids"]
        },
        "BulkTransitionRequest": {
            "type": "object",
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string"},
                "confirmed_date": {"type": "string"}
            },
            "required": ["status"]
        },
        "TransitionOutcome": {
            "type": "object",
            "properties": {
                "result": {"type": "string", "enum": ["applied", "needs_confirmation_date", "noop", "failed"]},
                "ids": {"type": "array", "items": {"type": "string"}},
                "affected": {"type": "integer"}
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
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"type": "object"},
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
