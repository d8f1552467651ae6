// Package docs holds the OpenAPI description of the sercha-rag HTTP API.
// Regenerate with: swag init -g cmd/sercha-rag/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Sercha OSS",
            "url": "https://github.com/custodia-labs/sercha-rag/issues"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/query": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Ask a question",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.QueryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.QueryResponse"}},
                    "400": {"description": "Missing question or unknown scope", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Query failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/queries": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "List my queries",
                "parameters": [
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.QueryRecord"}}},
                    "400": {"description": "Invalid paging", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/queries/{id}/feedback": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Feedback"],
                "summary": "Rate an answer",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/driving.SubmitFeedbackRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.QueryFeedback"}},
                    "400": {"description": "Unknown type, rating out of range or text too long", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Not the asker", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Query not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Feedback already submitted", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/feedback": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Feedback"],
                "summary": "List feedback",
                "parameters": [
                    {"type": "string", "name": "feedback_type", "in": "query", "enum": ["HELPFUL", "NOT_HELPFUL", "HALLUCINATION", "MISSING_INFO", "WRONG_SOURCE"]},
                    {"type": "boolean", "name": "is_reviewed", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.QueryFeedback"}}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Admins only", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/feedback/{id}/review": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Feedback"],
                "summary": "Mark feedback reviewed",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.QueryFeedback"}},
                    "403": {"description": "Admins only", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Feedback not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/queries/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Get a stored query",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.QueryRecord"}},
                    "403": {"description": "Not the asker", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Query not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/documents": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "List documents",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query", "enum": ["DRAFT", "APPROVED", "ARCHIVED"]},
                    {"type": "string", "name": "owner", "in": "query"},
                    {"type": "string", "name": "department", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.SourceDocument"}}},
                    "400": {"description": "Unknown status or invalid paging", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Create a document",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/driving.CreateDocumentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.SourceDocument"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Viewers cannot upload", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Get a document",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SourceDocument"}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}/approval": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Set approval state",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.ApprovalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SourceDocument"}},
                    "400": {"description": "Unknown state", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Not the owner or an admin", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}/revisions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "List revisions",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.DocumentRevision"}}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Upload a revision",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "name": "file_type", "in": "formData"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/domain.DocumentRevision"}},
                    "400": {"description": "Missing or empty file", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "415": {"description": "Unsupported file type", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/revisions/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Revisions"],
                "summary": "Get a revision",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.DocumentRevision"}},
                    "404": {"description": "Revision not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/revisions/{id}/chunks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Revisions"],
                "summary": "List chunks",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Chunk"}}},
                    "404": {"description": "Revision not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/revisions/{id}/reprocess": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Revisions"],
                "summary": "Reprocess a revision",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/domain.DocumentRevision"}},
                    "409": {"description": "Revision is not FAILED", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "invalid request body"}}
        },
        "http.QueryRequest": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "department": {"type": "string"},
                "scope": {"type": "string", "enum": ["owned"]}
            }
        },
        "http.QueryResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "answer": {"type": "string"},
                "citations": {"type": "array", "items": {"$ref": "#/definitions/domain.Citation"}},
                "tokens_used": {"type": "integer"},
                "response_time_ms": {"type": "integer"},
                "success": {"type": "boolean"},
                "num_chunks_retrieved": {"type": "integer"},
                "avg_similarity_score": {"type": "number"},
                "similarity_stats": {"$ref": "#/definitions/domain.SimilarityStats"},
                "message": {"type": "string"}
            }
        },
        "domain.SimilarityStats": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "avg_score": {"type": "number"},
                "min_score": {"type": "number"},
                "max_score": {"type": "number"}
            }
        },
        "http.ApprovalRequest": {
            "type": "object",
            "properties": {"state": {"type": "string", "enum": ["DRAFT", "APPROVED", "ARCHIVED"]}}
        },
        "driving.CreateDocumentRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "department": {"type": "string"}
            }
        },
        "domain.Citation": {
            "type": "object",
            "properties": {
                "chunk_id": {"type": "string"},
                "document_id": {"type": "string"},
                "document_title": {"type": "string"},
                "version_number": {"type": "integer"},
                "text": {"type": "string"},
                "similarity_score": {"type": "number"},
                "rank": {"type": "integer"}
            }
        },
        "domain.QueryRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "question": {"type": "string"},
                "answer": {"type": "string"},
                "context_text": {"type": "string"},
                "department": {"type": "string"},
                "tokens_used": {"type": "integer"},
                "response_time_ms": {"type": "integer"},
                "was_successful": {"type": "boolean"},
                "num_chunks_retrieved": {"type": "integer"},
                "avg_similarity_score": {"type": "number"},
                "citations": {"type": "array", "items": {"$ref": "#/definitions/domain.Citation"}},
                "created_at": {"type": "string"}
            }
        },
        "driving.SubmitFeedbackRequest": {
            "type": "object",
            "properties": {
                "feedback_type": {"type": "string", "enum": ["HELPFUL", "NOT_HELPFUL", "HALLUCINATION", "MISSING_INFO", "WRONG_SOURCE"]},
                "rating": {"type": "integer", "minimum": 1, "maximum": 5},
                "comment": {"type": "string", "maxLength": 1000},
                "hallucinated_text": {"type": "string", "maxLength": 2000}
            }
        },
        "domain.QueryFeedback": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "query_id": {"type": "string"},
                "user_id": {"type": "string"},
                "feedback_type": {"type": "string"},
                "rating": {"type": "integer"},
                "comment": {"type": "string"},
                "hallucinated_text": {"type": "string"},
                "is_reviewed": {"type": "boolean"},
                "reviewed_by": {"type": "string"},
                "reviewed_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "domain.Chunk": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "revision_id": {"type": "string"},
                "document_id": {"type": "string"},
                "ordinal": {"type": "integer"},
                "text": {"type": "string"},
                "metadata": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "domain.SourceDocument": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "owner_id": {"type": "string"},
                "department": {"type": "string"},
                "approval_state": {"type": "string", "enum": ["DRAFT", "APPROVED", "ARCHIVED"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.DocumentRevision": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "document_id": {"type": "string"},
                "sequence": {"type": "integer"},
                "file_type": {"type": "string", "enum": ["txt", "md", "html", "docx", "pdf"]},
                "file_name": {"type": "string"},
                "state": {"type": "string", "enum": ["UPLOADED", "PROCESSING", "READY", "FAILED"]},
                "chunk_count": {"type": "integer"},
                "error_message": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: \"Bearer {token}\"",
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
	Title:            "Sercha RAG API",
	Description:      "Document ingestion and grounded question answering over approved documents.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
