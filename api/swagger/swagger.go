package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Madarij Center API",
        "description": "Management backend for the Madarij Quran center: enrollment pipeline, halqa sessions, attendance and the Friday program.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Staff authentication"},
        {"name": "Enrollment", "description": "Student application pipeline"},
        {"name": "Interviews", "description": "Acceptance interview slots"},
        {"name": "Sessions", "description": "Halqa session lifecycle"},
        {"name": "Attendance", "description": "Per-session attendance"},
        {"name": "Friday", "description": "Friday program"},
        {"name": "Halqat", "description": "Halqa management"},
        {"name": "Students", "description": "Student records"},
        {"name": "Dashboard", "description": "Center overview"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Staff login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current staff profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/applications": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Register a new application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateApplicationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Enrollment"],
                "summary": "List applications still in the pipeline",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/applications/{id}/form-given": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Record that the enrollment form was handed out",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State changed concurrently"},
                    "422": {"description": "Transition not allowed from current state"}
                }
            }
        },
        "/enrollment/applications/{id}/form-submitted": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Record the returned enrollment form",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State changed concurrently"},
                    "422": {"description": "Transition not allowed from current state"}
                }
            }
        },
        "/enrollment/applications/{id}/schedule-interview": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Book the nearest open interview slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No slot available in the booking horizon"}
                }
            }
        },
        "/enrollment/applications/{id}/interview-completed": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Mark the interview as held",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/applications/{id}/result": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Record the interview outcome",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InterviewResultRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown result value"}
                }
            }
        },
        "/interviews": {
            "get": {
                "tags": ["Interviews"],
                "summary": "List upcoming interviews",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/interviews/{id}": {
            "delete": {
                "tags": ["Interviews"],
                "summary": "Cancel an open interview",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/sessions/materialize": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Create the session rows for a calendar date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "description": "YYYY-MM-DD, defaults to today"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "halqaId", "in": "query", "type": "string"},
                    {"name": "dayType", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Session detail with attendance stats",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/start": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Start a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State changed concurrently"},
                    "422": {"description": "Session is not in a startable state"}
                }
            }
        },
        "/sessions/{id}/end": {
            "post": {
                "tags": ["Sessions"],
                "summary": "End a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State changed concurrently"},
                    "422": {"description": "Session has not started"}
                }
            }
        },
        "/sessions/{id}/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record an attendance batch",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Session has not started"}
                }
            },
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance for a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/attendance/mark-all-present": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark the whole roster present",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/attendance/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Export the attendance sheet",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/friday/config": {
            "get": {
                "tags": ["Friday"],
                "summary": "Friday program configuration for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "description": "YYYY-MM-DD, defaults to the next Friday"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Friday"],
                "summary": "Toggle the recreational day flag",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FridayToggleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Program already completed or state changed concurrently"}
                }
            }
        },
        "/friday/generate": {
            "post": {
                "tags": ["Friday"],
                "summary": "Generate the Friday program sessions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/friday/schedule": {
            "get": {
                "tags": ["Friday"],
                "summary": "Rendered Friday schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/halqat": {
            "post": {
                "tags": ["Halqat"],
                "summary": "Create a halqa",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateHalqaRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Halqat"],
                "summary": "List halqat with occupancy",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/halqat/{id}": {
            "get": {
                "tags": ["Halqat"],
                "summary": "Get a halqa",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/halqat/{id}/students": {
            "get": {
                "tags": ["Halqat"],
                "summary": "Accepted students in a halqa",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "stage", "in": "query", "type": "string"},
                    {"name": "halqaId", "in": "query", "type": "string"},
                    {"name": "applicationStatus", "in": "query", "type": "string"},
                    {"name": "activeOnly", "in": "query", "type": "boolean"},
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
                "summary": "Student detail with guardian",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/contacts": {
            "get": {
                "tags": ["Students"],
                "summary": "Guardian contact log of a student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Cached center overview",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/refresh": {
            "post": {
                "tags": ["Dashboard"],
                "summary": "Drop the cached overview",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateApplicationRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "age": {"type": "integer"},
                "stage": {"type": "string", "enum": ["ابتدائي", "إعدادي", "ثانوي", "جامعة"]},
                "notes": {"type": "string"},
                "guardian": {"$ref": "#/definitions/GuardianInput"}
            },
            "required": ["name", "stage", "guardian"]
        },
        "GuardianInput": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "alternate_phone": {"type": "string"},
                "relationship": {"type": "string"},
                "whatsapp_enabled": {"type": "boolean"}
            },
            "required": ["name", "phone", "relationship"]
        },
        "InterviewResultRequest": {
            "type": "object",
            "properties": {
                "result": {"type": "string", "enum": ["مقبول", "مرفوض", "معلق"]},
                "halqa_id": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["result"]
        },
        "RecordAttendanceRequest": {
            "type": "object",
            "properties": {
                "records": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/AttendanceRecord"}
                }
            },
            "required": ["records"]
        },
        "AttendanceRecord": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "status": {"type": "string", "enum": ["حاضر", "غائب", "متأخر", "مستأذن"]},
                "absence_reason": {"type": "string"}
            },
            "required": ["student_id", "status"]
        },
        "FridayToggleRequest": {
            "type": "object",
            "properties": {
                "is_recreational_day": {"type": "boolean"}
            }
        },
        "CreateHalqaRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "teacher_id": {"type": "string"},
                "supervisor_id": {"type": "string"},
                "days": {"type": "array", "items": {"type": "string"}},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "session_duration": {"type": "integer"},
                "max_students": {"type": "integer"}
            },
            "required": ["name", "teacher_id", "days", "start_time", "end_time", "max_students"]
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
