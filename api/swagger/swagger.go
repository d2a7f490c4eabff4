// Package swagger registers the static OpenAPI document served at /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendly API",
        "description": "Multi-tenant class attendance service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Tenants", "description": "Institution provisioning and settings"},
        {"name": "Catalog", "description": "Cohorts, sections and subjects"},
        {"name": "Users", "description": "Teacher and student accounts"},
        {"name": "Offerings", "description": "Subject-cohort-section-teacher assignments"},
        {"name": "Schedules", "description": "Weekly class slots"},
        {"name": "Enrollments", "description": "Student rosters"},
        {"name": "Attendance", "description": "Time-locked attendance sessions and reports"},
        {"name": "Teachers", "description": "Teacher dashboard"}
    ],
    "paths": {
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Authenticate a user against their institution"}},
        "/auth/me": {"get": {"tags": ["Auth"], "summary": "Return the authenticated user's claims"}},
        "/tenants/signup": {"post": {"tags": ["Tenants"], "summary": "Provision a new institution and its admin account"}},
        "/tenants/me": {"get": {"tags": ["Tenants"], "summary": "Return the active tenant's profile"}},
        "/tenants/me/settings": {"put": {"tags": ["Tenants"], "summary": "Update tenant settings"}},
        "/cohorts": {
            "get": {"tags": ["Catalog"], "summary": "List cohorts"},
            "post": {"tags": ["Catalog"], "summary": "Create a cohort"}
        },
        "/cohorts/{id}": {"delete": {"tags": ["Catalog"], "summary": "Delete a cohort with no dependents"}},
        "/sections": {
            "get": {"tags": ["Catalog"], "summary": "List sections"},
            "post": {"tags": ["Catalog"], "summary": "Create a section"}
        },
        "/sections/{id}": {"delete": {"tags": ["Catalog"], "summary": "Delete a section with no dependents"}},
        "/subjects": {
            "get": {"tags": ["Catalog"], "summary": "List subjects"},
            "post": {"tags": ["Catalog"], "summary": "Create a subject"}
        },
        "/subjects/{id}": {"delete": {"tags": ["Catalog"], "summary": "Delete a subject with no dependents"}},
        "/users": {
            "get": {"tags": ["Users"], "summary": "List users"},
            "post": {"tags": ["Users"], "summary": "Create a teacher or student account"}
        },
        "/users/{id}": {"get": {"tags": ["Users"], "summary": "Get user by id"}},
        "/offerings": {
            "get": {"tags": ["Offerings"], "summary": "List offerings"},
            "post": {"tags": ["Offerings"], "summary": "Assign a teacher a subject for a cohort and section"}
        },
        "/offerings/{id}": {
            "get": {"tags": ["Offerings"], "summary": "Get offering by id"},
            "delete": {"tags": ["Offerings"], "summary": "Delete an offering and its enrollments"}
        },
        "/offerings/{id}/schedules": {"get": {"tags": ["Schedules"], "summary": "List an offering's weekly slots"}},
        "/offerings/{id}/roster": {"get": {"tags": ["Enrollments"], "summary": "List an offering's roster"}},
        "/schedules": {"post": {"tags": ["Schedules"], "summary": "Create a weekly slot for an offering"}},
        "/schedules/{id}": {
            "get": {"tags": ["Schedules"], "summary": "Get schedule by id"},
            "put": {"tags": ["Schedules"], "summary": "Move or resize a weekly slot"},
            "delete": {"tags": ["Schedules"], "summary": "Archive a weekly slot"}
        },
        "/enrollments": {"post": {"tags": ["Enrollments"], "summary": "Enroll a student into an offering explicitly"}},
        "/enrollments/{id}": {"delete": {"tags": ["Enrollments"], "summary": "Remove an enrollment with no attendance attached"}},
        "/students/{id}/enrollments": {"get": {"tags": ["Enrollments"], "summary": "List a student's enrollments"}},
        "/students/{id}/attendance": {"get": {"tags": ["Attendance"], "summary": "Summarize a student's attendance counts"}},
        "/attendance": {"post": {"tags": ["Attendance"], "summary": "Submit a full attendance session for the open window"}},
        "/attendance/sessions/{id}": {"get": {"tags": ["Attendance"], "summary": "Report one session's attendance rows and counts"}},
        "/teachers/me/session": {"get": {"tags": ["Teachers"], "summary": "Report the teacher's current attendance window state"}}
    },
    "definitions": {
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
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
