package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VickyKR37/autobook/internal/usecase"
)

const (
	internalErrorMessage    = "Something went wrong. Please try again."
	unauthenticatedMessage  = "Authentication required."
	tooManyAttemptsMessage  = "Too many attempts. Please try again later."
	invalidArgumentFallback = "Invalid request."
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// respondAccessError writes an AccessResult for a failed access code operation.
// A denial is a normal outcome and is reported with 200.
func respondAccessError(c *gin.Context, err error) {
	var rateErr *usecase.RateLimitExceededError
	var invalid *usecase.InvalidArgumentError

	switch {
	case errors.As(err, &rateErr):
		seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		if seconds > 0 {
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
		c.JSON(http.StatusTooManyRequests, AccessResult{Error: tooManyAttemptsMessage})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, AccessResult{Error: invalid.Message})
	case errors.Is(err, usecase.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, AccessResult{Error: invalidArgumentFallback})
	case errors.Is(err, usecase.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, AccessResult{Error: unauthenticatedMessage})
	case errors.Is(err, usecase.ErrAccessDenied):
		c.JSON(http.StatusOK, AccessResult{Error: usecase.AccessDeniedMessage})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, AccessResult{Error: internalErrorMessage})
	}
}
