package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/transport/http/middleware"
	"github.com/VickyKR37/autobook/internal/usecase"
)

// AccessCodeIssuer regenerates and reports on owner access codes.
type AccessCodeIssuer interface {
	RegenerateAccessCode(ctx context.Context, accountID string) (*domain.IssuedAccessCode, error)
	AccessCodeStatus(ctx context.Context, accountID string) (*domain.AccessCodeStatus, error)
}

// AccessValidator checks mechanic-presented credentials.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, ownerEmail, code string) (*domain.AccessGrant, error)
}

// AccessCodeHandler exposes the owner and mechanic access code endpoints.
type AccessCodeHandler struct {
	issuer    AccessCodeIssuer
	validator AccessValidator
}

// NewAccessCodeHandler constructs an AccessCodeHandler.
func NewAccessCodeHandler(issuer AccessCodeIssuer, validator AccessValidator) *AccessCodeHandler {
	return &AccessCodeHandler{issuer: issuer, validator: validator}
}

// RegenerateAccessCode godoc
// @Summary Regenerate the mechanic access code
// @Description Replaces the owner's access code. The new code is returned once and the previous one stops working.
// @Tags AccessCode
// @Security Bearer
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} RegenerateAccessCodeResponse
// @Failure 401 {object} AccessResult
// @Failure 429 {object} middleware.ErrorResponse
// @Failure 500 {object} AccessResult
// @Router /api/v1/access-code/regenerate [post]
func (h *AccessCodeHandler) RegenerateAccessCode(c *gin.Context) {
	if h.issuer == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "access code service unavailable"))
		return
	}

	accountID, _ := middleware.GetAuthenticatedAccountID(c)

	issued, err := h.issuer.RegenerateAccessCode(c.Request.Context(), accountID)
	if err != nil {
		respondAccessError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, RegenerateAccessCodeResponse{
		Success:       true,
		NewAccessCode: issued.Code,
	})
}

// AccessCodeStatus godoc
// @Summary Access code status
// @Description Reports whether the owner has an access code and when it was issued. The code itself is never returned.
// @Tags AccessCode
// @Security Bearer
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} AccessCodeStatusResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/access-code [get]
func (h *AccessCodeHandler) AccessCodeStatus(c *gin.Context) {
	if h.issuer == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "access code service unavailable"))
		return
	}

	accountID, _ := middleware.GetAuthenticatedAccountID(c)

	status, err := h.issuer.AccessCodeStatus(c.Request.Context(), accountID)
	if err != nil {
		if !errors.Is(err, usecase.ErrProfileNotFound) && !errors.Is(err, usecase.ErrUnauthenticated) {
			_ = c.Error(err)
		}
		cases := []ErrorCase{
			{Err: usecase.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "authentication required"},
			{Err: usecase.ErrProfileNotFound, Status: http.StatusNotFound, Message: "profile not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to load access code status")
		return
	}

	c.JSON(http.StatusOK, AccessCodeStatusResponse{
		Provisioned: status.Provisioned,
		IssuedAt:    status.IssuedAt,
	})
}

// ValidateAccess godoc
// @Summary Validate mechanic access
// @Description Checks an owner email and access code pair. Every denial returns the same body.
// @Tags MechanicAccess
// @Accept json
// @Produce json
// @Param request body ValidateAccessRequest true "Owner email and access code"
// @Success 200 {object} ValidateAccessResponse
// @Failure 400 {object} AccessResult
// @Failure 429 {object} AccessResult
// @Failure 500 {object} AccessResult
// @Router /api/v1/mechanic-access/validate [post]
func (h *AccessCodeHandler) ValidateAccess(c *gin.Context) {
	if h.validator == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "mechanic access service unavailable"))
		return
	}

	var req ValidateAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AccessResult{Error: "Request body must be JSON with ownerEmail and accessCode."})
		return
	}

	grant, err := h.validator.ValidateAccess(c.Request.Context(), req.OwnerEmail, req.AccessCode)
	if err != nil {
		respondAccessError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, ValidateAccessResponse{
		Success:     true,
		OwnerEmail:  grant.OwnerEmail,
		OwnerUserID: grant.OwnerAccountID,
	})
}
