package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CertifyMe Attestation API",
        "description": "Skill attestation verification pipeline",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Certificates", "description": "Submission pipeline and certificate lifecycle"},
        {"name": "Verification", "description": "Public verification surface"},
        {"name": "Campus", "description": "Institutional batch operations"}
    ],
    "paths": {
        "/certificates/submit-evidence": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Submit evidence for verification",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload"},
                    "502": {"description": "Scoring unavailable"}
                }
            }
        },
        "/certificates": {
            "get": {
                "tags": ["Certificates"],
                "summary": "List certificates",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates/{certId}": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Get certificate by identifier",
                "parameters": [{"name": "certId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/certificates/{certId}/pdf": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Download a printable certificate",
                "parameters": [{"name": "certId", "in": "path", "required": true, "type": "string"}],
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF document"},
                    "409": {"description": "Not verified"}
                }
            }
        },
        "/certificates/{certId}/mint": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Record a minted ledger asset",
                "parameters": [{"name": "certId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Not mintable"}
                }
            }
        },
        "/certificates/{certId}/anchor": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Record anchor fields produced out of band",
                "parameters": [{"name": "certId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/certificates/{certId}/plagiarism": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Record a plagiarism result produced out of band",
                "parameters": [{"name": "certId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/certificates/{certId}/attestation": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Record attestation fields produced out of band",
                "parameters": [{"name": "certId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/certificates/{certId}/revoke": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Revoke a certificate (admin)",
                "parameters": [{"name": "certId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"},
                    "409": {"description": "Already revoked"}
                }
            }
        },
        "/verification/asset/{assetId}": {
            "get": {
                "tags": ["Verification"],
                "summary": "Verify a certificate by ledger asset identifier",
                "parameters": [{"name": "assetId", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No certificate for asset"}
                }
            }
        },
        "/verification/certificate/{certId}": {
            "get": {
                "tags": ["Verification"],
                "summary": "Verify a certificate by its identifier",
                "parameters": [{"name": "certId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/verification/verify-code": {
            "post": {
                "tags": ["Verification"],
                "summary": "Run a direct code analysis without creating a submission",
                "responses": {
                    "200": {"description": "OK"},
                    "502": {"description": "Scoring unavailable"}
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["Verification"],
                "summary": "Platform certificate statistics",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/campus/batch-mint": {
            "post": {
                "tags": ["Campus"],
                "summary": "Start a batch certificate verification job (admin)",
                "responses": {
                    "202": {"description": "Accepted"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/campus/jobs/{id}": {
            "get": {
                "tags": ["Campus"],
                "summary": "Check batch job status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        }
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
