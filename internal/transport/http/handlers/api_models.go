package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// AccessResult is the body of every access code operation outcome. It carries no
// per-request data so that identical outcomes serialize to identical bytes.
type AccessResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RegenerateAccessCodeResponse returns the new plaintext access code exactly once.
type RegenerateAccessCodeResponse struct {
	Success       bool   `json:"success"`
	NewAccessCode string `json:"newAccessCode"`
}

// AccessCodeStatusResponse reports whether the owner has an access code.
type AccessCodeStatusResponse struct {
	Provisioned bool       `json:"provisioned"`
	IssuedAt    *time.Time `json:"issuedAt,omitempty"`
}

// ValidateAccessRequest holds the credentials a mechanic presents.
type ValidateAccessRequest struct {
	OwnerEmail string `json:"ownerEmail"`
	AccessCode string `json:"accessCode"`
}

// ValidateAccessResponse confirms access to an owner's records.
type ValidateAccessResponse struct {
	Success     bool   `json:"success"`
	OwnerEmail  string `json:"ownerEmail"`
	OwnerUserID string `json:"ownerUserId"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
