package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Class Admin API",
        "description": "Recurring class scheduling, calendar materialization and rescheduling",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedules", "description": "Weekly recurring schedules"},
        {"name": "Exceptions", "description": "Date-specific schedule overrides"},
        {"name": "Calendar", "description": "Materialized calendar and event moves"},
        {"name": "Classes", "description": "Class roster and timetable export"},
        {"name": "Meetings", "description": "Staff meetings"},
        {"name": "Tests", "description": "Scheduled tests"}
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
        "/schedules": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Create weekly schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlaps a sibling schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get schedule with exceptions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Schedules"],
                "summary": "Update schedule pattern",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlaps a sibling schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete schedule and its exceptions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/schedules/{id}/exceptions": {
            "get": {
                "tags": ["Exceptions"],
                "summary": "List exceptions for a schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exceptions"],
                "summary": "Create exception",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExceptionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Exception already exists for that date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exceptions/{id}": {
            "put": {
                "tags": ["Exceptions"],
                "summary": "Update exception",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateExceptionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Exceptions"],
                "summary": "Delete exception",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/calendar": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Materialize calendar events for a date range",
                "parameters": [
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/events/{id}/move": {
            "post": {
                "tags": ["Calendar"],
                "summary": "Move a calendar event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Recurring move overlaps a sibling schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedules for a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/timetable/export": {
            "get": {
                "tags": ["Classes"],
                "summary": "Export a class's weekly timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File payload"}
                }
            }
        },
        "/meetings": {
            "get": {
                "tags": ["Meetings"],
                "summary": "List meetings",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Meetings"],
                "summary": "Create meeting",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateMeetingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tests": {
            "get": {
                "tags": ["Tests"],
                "summary": "List tests",
                "parameters": [
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Tests"],
                "summary": "Create test",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Schedule": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "class_id": {"type": "string"},
                "day_of_week": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "exceptions": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ScheduleException"}
                },
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ScheduleException": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "schedule_id": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "cancelled": {"type": "boolean"},
                "created_at": {"type": "string"}
            }
        },
        "CalendarEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "kind": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "tag": {"type": "string"}
            }
        },
        "CreateScheduleRequest": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "day_of_week": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            },
            "required": ["class_id", "start_time", "end_time"]
        },
        "UpdateScheduleRequest": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "CreateExceptionRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "cancelled": {"type": "boolean"}
            },
            "required": ["date"]
        },
        "UpdateExceptionRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "cancelled": {"type": "boolean"}
            }
        },
        "MoveEventRequest": {
            "type": "object",
            "properties": {
                "new_date": {"type": "string"},
                "new_start_time": {"type": "string"},
                "mode": {"type": "string", "enum": ["single-occurrence", "recurring"]}
            },
            "required": ["new_date", "new_start_time"]
        },
        "CreateClassRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "room": {"type": "string"}
            },
            "required": ["name"]
        },
        "CreateMeetingRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "participants": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            },
            "required": ["title", "date", "start_time", "end_time"]
        },
        "CreateTestRequest": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "title": {"type": "string"},
                "test_type": {"type": "string"},
                "test_date": {"type": "string"}
            },
            "required": ["class_id", "title", "test_date"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"}
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
